// Package validation checks API request bodies. Struct rules live in
// `validate` tags and are enforced by go-playground/validator; failures are
// reported as ValidationErrors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with field-level error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports JSON field names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s and returns ValidationErrors when any rule fails.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), fmt.Sprint(fe.Value()), friendlyMessage(fe))
	}
	return errs
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "hexcolor":
		return "must be a hex color such as #FFAA00"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// TrimString trims surrounding whitespace in place.
func TrimString(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// TrimOptional trims an optional string and clears it when nothing is left.
func TrimOptional(s **string) {
	if *s == nil {
		return
	}
	trimmed := strings.TrimSpace(**s)
	if trimmed == "" {
		*s = nil
		return
	}
	*s = &trimmed
}
