package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/streamkit/errors"
)

// FieldError names one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldErrors renders as "a: msg; b: msg".
type fieldErrors []FieldError

func (fe fieldErrors) String() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// appError folds the collected field errors into a single INVALID_INPUT
// error. A lone failure also records its field name under "field".
func (fe fieldErrors) appError() *errors.AppError {
	err := errors.Validation(fe.String()).WithDetail("fields", []FieldError(fe))
	if len(fe) == 1 {
		err.WithDetail("field", fe[0].Field)
	}
	return err
}

// Validator accumulates imperative checks for values that struct tags
// cannot express, such as durations derived from float seconds.
//
//	err := validation.New().
//		PositiveDuration("keep_alive_interval", d).
//		Validate()
type Validator struct {
	failed fieldErrors
}

func New() *Validator {
	return &Validator{failed: fieldErrors{}}
}

func (v *Validator) check(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// AddError records a failure for field.
func (v *Validator) AddError(field, message string) {
	v.failed = append(v.failed, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []FieldError { return v.failed }

// Validate returns nil when every check passed.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	return v.failed.appError()
}

func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "is required")
}

func (v *Validator) Min(field string, value, minVal int64) *Validator {
	return v.check(value >= minVal, field, fmt.Sprintf("must be at least %d", minVal))
}

func (v *Validator) PositiveDuration(field string, d time.Duration) *Validator {
	return v.check(d > 0, field, "must be positive")
}

func (v *Validator) NonNegativeDuration(field string, d time.Duration) *Validator {
	return v.check(d >= 0, field, "must not be negative")
}

// OneOf accepts an empty value so optional enums can be checked inline.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	ok := value == "" || slices.Contains(allowed, value)
	return v.check(ok, field, "must be one of: "+strings.Join(allowed, ", "))
}

func (v *Validator) Custom(condition bool, field, message string) *Validator {
	return v.check(condition, field, message)
}

// Required is the one-field shorthand for New().Required(...).Validate().
func Required(field, value string) error {
	if err := New().Required(field, value).Validate(); err != nil {
		return err
	}
	return nil
}
