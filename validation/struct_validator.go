package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/streamkit/errors"
)

// structValidator names fields after their yaml keys so that messages point
// at the config file: "writable.high_water_mark", not "Writable.HighWaterMark".
var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return toSnakeCase(fld.Name)
		}
		return name
	})
	return v
})

// Validate checks a struct against its `validate` tags. Failures are
// reported as one INVALID_ARGUMENT error whose "fields" detail lists every
// offending key.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, 0, len(verrs))
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe)
		msg := describe(fe)
		fields = append(fields, FieldError{Field: key, Message: msg})
		parts = append(parts, key+": "+msg)
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}

// fieldKey is the dotted path below the root struct.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

func toSnakeCase(s string) string {
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
