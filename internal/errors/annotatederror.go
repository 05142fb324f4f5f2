package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// annotatedError includes more context than a plain error that is useful for troubleshooting.
type annotatedError struct {
	// msg is the error message.
	msg string
	// wrapped is the optional cause of the error.
	wrapped error
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC, and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// New creates a new error with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:     msg,
		wrapped: nil,
		pc:      callerPC(),
		attrs:   attrs,
	}
}

// Wrap adds context to err. The message is prefixed to the wrapped message and the attributes are logged along
// with the source location of the Wrap call. Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{
		msg:     msg,
		wrapped: err,
		pc:      callerPC(),
		attrs:   attrs,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be detected
// with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // sentinels are created here on purpose.
}

// Error implements error interface.
func (err *annotatedError) Error() string {
	if err.wrapped == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.wrapped.Error())
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (err *annotatedError) Unwrap() error {
	return err.wrapped
}

// LogValue formats the error for useful logging.
func (err *annotatedError) LogValue() slog.Value {
	// Retrieve the source location of the error so that developers can locate it faster.
	frames := runtime.CallersFrames([]uintptr{err.pc})
	source, _ := frames.Next()

	attrs := []slog.Attr{
		slog.String("message", err.Error()),
		slog.String("source", fmt.Sprintf("%s:%d", source.File, source.Line)),
	}
	attrs = append(attrs, err.attrs...)

	// Collect attributes from the wrapped annotated errors so that no context is lost.
	var inner *annotatedError
	if errors.As(err.wrapped, &inner) {
		attrs = append(attrs, slog.Any("cause", inner))
	}

	return slog.GroupValue(attrs...)
}

// SlogError returns a slog.Attr with key "error" that logs err with all annotations.
func SlogError(err error) slog.Attr {
	var annotated *annotatedError
	if errors.As(err, &annotated) {
		return slog.Any("error", annotated)
	}
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
