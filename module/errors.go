package module

import (
	"errors"
	"fmt"
)

// ErrUnknown primitive not defined in the module
var ErrUnknown = errors.New("module: unknown primitive")

// ArityError argument count outside the primitive arity
type ArityError struct {
	Prim string
	Min  int
	Max  int
	Got  int
}

// Error implements error
func (e *ArityError) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("module: %s: expected %d arguments, got %d", e.Prim, e.Min, e.Got)
	}
	return fmt.Sprintf("module: %s: expected %d to %d arguments, got %d", e.Prim, e.Min, e.Max, e.Got)
}

// ArgError argument of the wrong type, raised before any library call
type ArgError struct {
	Prim  string
	Index int
	Param string
	Kind  Kind
	Value any
	Err   error
}

// Error implements error
func (e *ArgError) Error() string {
	msg := fmt.Sprintf("module: %s: argument %d (%s): expected %s, got %T",
		e.Prim, e.Index+1, e.Param, e.Kind, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying conversion error
func (e *ArgError) Unwrap() error {
	return e.Err
}

// IsArgumentError indicates if err is raised by argument checking
func IsArgumentError(err error) bool {
	var arity *ArityError
	var arg *ArgError
	return errors.Is(err, ErrUnknown) || errors.As(err, &arity) || errors.As(err, &arg)
}
