package service

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("authentication credentials were not provided")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidToken = errors.New("invalid token")
)

// kindError carries a caller-facing message while matching one of the sentinels above.
type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }

func notFound(what string) error {
	return kindError{kind: ErrNotFound, msg: what + " not found"}
}

func conflict(msg string) error {
	return kindError{kind: ErrConflict, msg: msg}
}

// FieldError is a single message attached to a request field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError accumulates field errors; it matches ErrValidation.
type ValidationError struct {
	errs error
}

func (v *ValidationError) Add(field, message string) {
	v.errs = multierr.Append(v.errs, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was added.
func (v *ValidationError) Err() error {
	if v.errs == nil {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	if v.errs == nil {
		return ErrValidation.Error()
	}
	return v.errs.Error()
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// Fields groups messages by field name.
func (v *ValidationError) Fields() map[string][]string {
	fields := make(map[string][]string)
	for _, err := range multierr.Errors(v.errs) {
		var fe FieldError
		if errors.As(err, &fe) {
			fields[fe.Field] = append(fields[fe.Field], fe.Message)
		}
	}
	return fields
}

// FieldNames is sorted, for stable messages.
func (v *ValidationError) FieldNames() []string {
	fields := v.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func invalid(field, message string) error {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// translate maps a missing row to ErrNotFound for the named entity.
func translate(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return err
}
