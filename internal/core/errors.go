package core

import "errors"

var (
	// ErrFatal marks errors after which the worker can no longer trust its index
	// or its CI credentials.
	ErrFatal = errors.New("fatal")
	// ErrNotFound is returned by CI platforms when a build log does not exist.
	ErrNotFound = errors.New("not found")
)

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() []error { return []error{e.err, ErrFatal} }

// Fatal wraps err so that IsFatal reports true for it and anything wrapping it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err should stop the worker.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
