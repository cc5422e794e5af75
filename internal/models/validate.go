package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and returns a readable error for the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return describe(fieldErrs[0])
}

func describe(fe validator.FieldError) error {
	name := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "email":
		return fmt.Errorf("%s must be a valid email address", name)
	case "len":
		return fmt.Errorf("%s must be %s characters", name, fe.Param())
	case "numeric":
		return fmt.Errorf("%s must contain only digits", name)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s", name, fe.Param())
	case "eqfield":
		return fmt.Errorf("%s must match %s", name, toSnake(fe.Param()))
	default:
		return fmt.Errorf("%s failed %s validation", name, fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
