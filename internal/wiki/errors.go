package wiki

import (
	"errors"
	"fmt"
)

// Kind classifies a lookup failure.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindInvalidResponse Kind = "invalid_response"
	KindDecode          Kind = "decode"
)

// Sentinels matched by LookupError through errors.Is.
var (
	ErrNetwork         = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid response")
	ErrDecode          = errors.New("decode error")
)

// LookupError describes a failed encyclopedia API call.
type LookupError struct {
	Op         string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s [%s]: status %d", e.Op, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	}
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is lets callers match on the kind sentinels.
func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrInvalidResponse:
		return e.Kind == KindInvalidResponse
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// IsNetwork reports whether err is a transport failure, the only kind worth
// retrying.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func networkError(op string, err error) error {
	return &LookupError{Op: op, Kind: KindNetwork, Err: err}
}

func statusError(op string, code int) error {
	return &LookupError{Op: op, Kind: KindInvalidResponse, StatusCode: code}
}

func decodeError(op string, err error) error {
	return &LookupError{Op: op, Kind: KindDecode, Err: err}
}
