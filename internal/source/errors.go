package source

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// KindTransport is a connection, TLS, or timeout failure.
	KindTransport ErrorKind = iota + 1
	// KindStatus is a non-2xx HTTP response.
	KindStatus
	// KindParse is a payload that could not be decoded.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// FetchError is the only error a Client's Search returns for remote failures.
type FetchError struct {
	Source     string
	Kind       ErrorKind
	StatusCode int // set for KindStatus
	URL        string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: %s: HTTP %d", e.Source, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps a FetchError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

func transportError(source, url string, err error) error {
	return &FetchError{Source: source, Kind: KindTransport, URL: url, Err: err}
}

func statusError(source, url string, code int) error {
	return &FetchError{Source: source, Kind: KindStatus, StatusCode: code, URL: url,
		Err: fmt.Errorf("unexpected status %d", code)}
}

func parseError(source, url string, err error) error {
	return &FetchError{Source: source, Kind: KindParse, URL: url, Err: err}
}
