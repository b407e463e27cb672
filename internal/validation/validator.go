package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
)

// PhonePattern is the accepted Tanzanian mobile number format.
var PhonePattern = regexp.MustCompile(`^\+255[67]\d{8}$`)

const phoneMessage = "Phone number must be in the format: '+255XXXXXXXXX'. Tanzania format required."

var (
	once     sync.Once
	instance *validator.Validate
)

// Engine returns the shared validator with JSON field names and custom tags registered.
func Engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "tzphone", func(fl validator.FieldLevel) bool {
			return PhonePattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates s and converts failures into a field keyed *apperrors.Error.
func Struct(s any) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Internal(err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], message(fe))
	}
	return apperrors.Validation(fields)
}

// Merge folds extra field messages into err, which may be nil or a validation error.
func Merge(err error, extra map[string][]string) error {
	if len(extra) == 0 {
		return err
	}
	fields := map[string][]string{}
	if err != nil {
		appErr, ok := apperrors.As(err)
		if !ok || appErr.Kind != apperrors.KindValidation {
			return err
		}
		for k, v := range appErr.Fields {
			fields[k] = append(fields[k], v...)
		}
	}
	for k, v := range extra {
		fields[k] = append(fields[k], v...)
	}
	return apperrors.Validation(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field may not be blank."
	case "tzphone":
		return phoneMessage
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	default:
		return fmt.Sprintf("Invalid value (failed on '%s').", fe.Tag())
	}
}
