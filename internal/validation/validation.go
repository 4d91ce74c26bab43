package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"laundry/internal/apperr"
)

// MinPasswordLength applies to every place a password is chosen.
const MinPasswordLength = 6

// Local numbers start with 0, international ones with a country code.
var mobilePattern = regexp.MustCompile(`^(?:\+\d{1,3}|0)\d{9}$`)

var passwordFields = map[string]struct{}{
	"password":    {},
	"newPassword": {},
}

// New returns a validator that reports JSON field names and knows the
// "mobile" rule.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	return v
}

func IsMobile(value string) bool {
	return mobilePattern.MatchString(value)
}

// Check validates input and converts the first failure into a tagged
// VALIDATION error. A too short password carries the WEAK_PASSWORD code.
func Check(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperr.Validation("invalid input")
	}

	fe := validationErrors[0]
	field := fe.Field()
	if _, ok := passwordFields[field]; ok && fe.Tag() == "min" {
		return WeakPassword()
	}
	return apperr.Validation(message(field, fe))
}

func WeakPassword() *apperr.Error {
	return apperr.New(apperr.KindValidation, apperr.CodeWeakPassword,
		fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "mobile":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("%s must be greater than %s%s", field, orEqual(fe.Tag()), fe.Param())
	case "lte", "lt":
		return fmt.Sprintf("%s must be less than %s%s", field, orEqual(fe.Tag()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func orEqual(tag string) string {
	if strings.HasSuffix(tag, "e") {
		return "or equal to "
	}
	return ""
}
