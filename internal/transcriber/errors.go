package transcriber

import (
	"errors"
	"fmt"
)

// TransportError marks a failed submission: a network-level failure, an
// unreadable response, or a non-2xx status.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport failure"
	}
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("transport failure: HTTP status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("transport failure: HTTP status %d", e.StatusCode)
	}
	if e.Err == nil {
		return "transport failure"
	}
	return "transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newTransportError(err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Err: err}
}

func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}

// InputError marks a local audio file that could not be read. Nothing was
// sent to the service.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read audio file %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
