package magick

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// ErrClosed is returned when operating on a wand that has been destroyed
var ErrClosed = errors.New("magick: wand closed")

// Severity is the MagickWand exception severity, valued as the
// ImageMagick ExceptionType enumeration
type Severity int

// Severity enum
const (
	SeverityUndefined Severity = 0
	SeverityWarning   Severity = 300
	SeverityError     Severity = 400
	SeverityOption    Severity = 410
	SeverityFatal     Severity = 700
)

// String implements fmt.Stringer
func (s Severity) String() string {
	switch {
	case s >= SeverityFatal:
		return "fatal"
	case s >= SeverityError:
		return "error"
	case s >= SeverityWarning:
		return "warning"
	}
	return "undefined"
}

// Error carries the MagickWand exception of a failed operation
type Error struct {
	// Op is the operation that failed e.g. "imagick/fit"
	Op          string
	Severity    Severity
	Description string
	// Err is the system error observed alongside the library failure, if any
	Err error
}

// Error implements error
func (e *Error) Error() string {
	msg := "magick: " + e.Op
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the system error
func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal indicates if the library flagged the failure as fatal
func (e *Error) Fatal() bool {
	return e.Severity >= SeverityFatal
}

// exceptionKinds maps the kind names printed by the binding back to
// their ExceptionType values. Resource limit kinds alias the generic
// warning, error and fatal values so they need no entry of their own.
var exceptionKinds = func() map[string]Severity {
	kinds := make(map[string]Severity)
	for kind := imagick.EXCEPTION_UNDEFINED; kind <= imagick.FATAL_ERROR_POLICY; kind++ {
		name := kind.String()
		if !strings.HasPrefix(name, "UnknownError[") {
			kinds[name] = Severity(kind)
		}
	}
	return kinds
}()

// parseException splits the "<KIND>: <description>" text of a binding
// exception into its severity and the library description
func parseException(text string) (Severity, string, bool) {
	name, desc, found := strings.Cut(text, ": ")
	if !found {
		return SeverityUndefined, text, false
	}
	if severity, ok := exceptionKinds[name]; ok {
		return severity, desc, true
	}
	var code int
	if _, err := fmt.Sscanf(name, "UnknownError[%d]", &code); err == nil {
		return Severity(code), desc, true
	}
	return SeverityUndefined, text, false
}

// wrapError converts the error reported by the binding into *Error.
// The binding clears the wand exception state once it has been read.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	e := &Error{
		Op:          op,
		Severity:    SeverityError,
		Description: err.Error(),
	}
	if _, ok := err.(*imagick.MagickWandException); ok {
		if severity, desc, ok := parseException(e.Description); ok {
			if severity != SeverityUndefined {
				e.Severity = severity
			}
			e.Description = desc
		}
	}
	return e
}

// lastError reads and clears the exception state of the wand
func lastError(op string, mw *imagick.MagickWand) error {
	if err := mw.GetLastError(); err != nil {
		return wrapError(op, err)
	}
	return &Error{
		Op:          op,
		Severity:    SeverityError,
		Description: "operation failed",
	}
}

// withPathError merges the OS error of accessing path into err
func withPathError(err error, path string, dir bool) error {
	e, ok := err.(*Error)
	if !ok || e.Err != nil {
		return err
	}
	if dir {
		path = filepath.Dir(path)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		e.Err = statErr
	}
	return e
}

func errorf(op, format string, args ...any) error {
	return &Error{
		Op:          op,
		Severity:    SeverityOption,
		Description: fmt.Sprintf(format, args...),
	}
}
