// Package validation checks configuration input: struct tags through
// go-playground/validator and hand-written range checks through
// ConfigValidator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report yaml/json names so messages match the input documents.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"yaml", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
	return validate
}

// Struct validates v against its `validate` struct tags.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(instance().Struct(v))
}

// formatValidationError turns validator errors into readable messages, one
// per violated field.
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make([]error, 0, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()

		switch e.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s: field is required", field))
		case "min", "gte":
			out = append(out, fmt.Errorf("%s: must be at least %s", field, param))
		case "max", "lte":
			out = append(out, fmt.Errorf("%s: must not exceed %s", field, param))
		case "oneof":
			out = append(out, fmt.Errorf("%s: must be one of [%s]", field, param))
		default:
			out = append(out, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return errors.Join(out...)
}
