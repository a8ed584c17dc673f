package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// 2-50 chars, letters, digits, space and - _ . ! ?
	displayNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9 \-_.!?]{2,50}$`)
	// 6 uppercase alphanumeric chars
	roomIdRegexp = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		return displayNameRegexp.MatchString(fl.Field().String())
	})
	v.RegisterValidation("roomid", func(fl validator.FieldLevel) bool {
		return roomIdRegexp.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	if err := v.validate.Struct(i); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errors := make([]ValidationError, 0, len(validationErrors))

		for _, err := range validationErrors {
			var message string
			switch err.Tag() {
			case "required":
				message = fmt.Sprintf("%s is required", err.Field())
			case "min":
				message = fmt.Sprintf("%s must be at least %s characters long", err.Field(), err.Param())
			case "max":
				message = fmt.Sprintf("%s must not exceed %s characters", err.Field(), err.Param())
			case "displayname":
				message = fmt.Sprintf("%s must be 2-50 letters, digits, spaces or - _ . ! ?", err.Field())
			case "roomid":
				message = fmt.Sprintf("%s must be 6 uppercase alphanumeric characters", err.Field())
			default:
				message = fmt.Sprintf("%s is invalid", err.Field())
			}

			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Code:    strings.ToUpper(err.Tag()),
				Message: message,
			})
		}

		return errors, false
	}

	return nil, true
}
