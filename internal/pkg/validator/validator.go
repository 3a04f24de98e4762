package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var (
	weekKeyPattern = regexp.MustCompile(`^\d{4}-W(0[1-9]|[1-4]\d|5[0-3])$`)
	upiPattern     = regexp.MustCompile(`^[A-Za-z0-9._\-]{2,256}@[A-Za-z][A-Za-z0-9]{1,63}$`)
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{1,128}$`)
)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// ISO week key such as 2026-W07
	validate.RegisterValidation("week_key", func(fl validator.FieldLevel) bool {
		return weekKeyPattern.MatchString(fl.Field().String())
	})

	// UPI virtual payment address
	validate.RegisterValidation("upi", func(fl validator.FieldLevel) bool {
		return upiPattern.MatchString(fl.Field().String())
	})

	// Record ids used as ledger keys
	validate.RegisterValidation("record_id", func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt", "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "oneof":
			errors[field] = "Must be one of: " + err.Param()
		case "week_key":
			errors[field] = "Invalid week. Use the form 2026-W07"
		case "upi":
			errors[field] = "Invalid UPI id"
		case "record_id":
			errors[field] = "Invalid id"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
