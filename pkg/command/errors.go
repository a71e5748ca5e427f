package command

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument - значение отрицательное или не является числом.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange - значение не помещается в отведенное ему битовое поле.
	ErrOutOfRange = errors.New("out of range")
)

// FieldError указывает, какое именно поле команды не прошло проверку.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("command field %s=%s: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
