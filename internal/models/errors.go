package models

import "fmt"

// ProviderError reports a non-success HTTP status from a remote provider,
// carrying the status code and raw response body.
type ProviderError struct {
	Provider   ProviderTag
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// TransportError reports a connection or timeout failure before any
// response was received.
type TransportError struct {
	Provider ProviderTag
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StreamDecodeError reports a malformed server-sent event. Individual
// decode failures are tolerated: the event is skipped and the stream
// continues. Only a terminating transport failure ends the stream.
type StreamDecodeError struct {
	Provider ProviderTag
	Line     string
	Err      error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("%s stream decode error on %q: %v", e.Provider, e.Line, e.Err)
}

func (e *StreamDecodeError) Unwrap() error { return e.Err }
