package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kbukum/streamkit/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
})

// fieldName reports a field the way it is spelled in config files: the
// mapstructure key, else the json key, else snake_case of the Go name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "":
			continue
		case "-":
			return toSnakeCase(f.Name)
		default:
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// Validate checks s against its `validate` tags and returns an
// INVALID_INPUT AppError listing every failing field.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Validation("validation failed").WithCause(err)
	}

	failed := make(fieldErrors, 0, len(verrs))
	for _, e := range verrs {
		failed = append(failed, FieldError{Field: e.Field(), Message: describe(e)})
	}
	return failed.appError()
}

var tagMessages = map[string]string{
	"required":      "is required",
	"gt":            "must be greater than %s",
	"gte":           "must be greater than or equal to %s",
	"lt":            "must be less than %s",
	"lte":           "must be less than or equal to %s",
	"oneof":         "must be one of: %s",
	"hostname_port": "must be a host:port address",
	"url":           "must be a URL",
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "min", "max":
		bound := "at least"
		if e.Tag() == "max" {
			bound = "at most"
		}
		msg := "must be " + bound + " " + e.Param()
		if !numeric(e.Kind()) {
			msg += " characters"
		}
		return msg
	}
	msg, ok := tagMessages[e.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return strings.Replace(msg, "%s", e.Param(), 1)
	}
	return msg
}

func numeric(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
