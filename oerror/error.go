package oerror

import "fmt"

// HACError is an error produced by hac itself, as opposed to one bubbled up from the transport.
type HACError struct {
	err error
}

// New returns a new HACError formatted with the arguments passed. Wrapping verbs (%w) are kept, so
// errors.Is and errors.As see through the returned error.
func New(format string, args ...any) error {
	return &HACError{err: fmt.Errorf(format, args...)}
}

func (e *HACError) Error() string {
	return e.err.Error()
}

func (e *HACError) Unwrap() error {
	return e.err
}
