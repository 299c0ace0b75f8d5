package tmdb

import "fmt"

// TransportError reports a connection, timeout or non-200 response from the
// upstream API.
type TransportError struct {
	URL    string
	Status int // 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tmdb: request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("tmdb: request %s returned status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not the expected JSON shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tmdb: decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
