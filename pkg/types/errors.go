package types

import (
	"errors"
	"fmt"
)

// Network error kinds. Match with errors.Is against the sentinels below.
var (
	ErrTimeout          = errors.New("request timed out")
	ErrConnectionFailed = errors.New("network request failed")
	ErrHTTPStatus       = errors.New("unexpected http status")
)

// Store error kinds.
var (
	ErrReadFailure  = errors.New("store read failed")
	ErrWriteFailure = errors.New("store write failed")
	ErrCorruptData  = errors.New("stored data is corrupt")
	ErrStoreClosed  = errors.New("store is closed")
	ErrKeyUnknown   = errors.New("unknown store key")
)

// State errors. Using the application state before Initialize is a wiring
// bug in the caller, not a runtime fault.
var (
	ErrNotInitialized = errors.New("application state is not initialized")
)

// NetworkErrorKind classifies a NetworkError.
type NetworkErrorKind int

// Network error kinds.
const (
	NetworkTimeout NetworkErrorKind = iota + 1
	NetworkConnectionFailed
	NetworkHTTPStatus
)

func (k NetworkErrorKind) String() string {
	switch k {
	case NetworkTimeout:
		return "timeout"
	case NetworkConnectionFailed:
		return "connection_failed"
	case NetworkHTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// NetworkError is returned by the fetcher when a remote request fails and
// no cached value can stand in for it.
type NetworkError struct {
	Kind       NetworkErrorKind
	StatusCode int // set for NetworkHTTPStatus
	URL        string
	Err        error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case NetworkTimeout:
		return fmt.Sprintf("%s: %v", e.URL, ErrTimeout)
	case NetworkHTTPStatus:
		return fmt.Sprintf("%s: %v %d", e.URL, ErrHTTPStatus, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: %v", e.URL, ErrConnectionFailed, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.URL, ErrConnectionFailed)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is matches the kind sentinels ErrTimeout, ErrConnectionFailed and
// ErrHTTPStatus.
func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == NetworkTimeout
	case ErrConnectionFailed:
		return e.Kind == NetworkConnectionFailed
	case ErrHTTPStatus:
		return e.Kind == NetworkHTTPStatus
	}
	return false
}

// StoreErrorKind classifies a StoreError.
type StoreErrorKind int

// Store error kinds.
const (
	StoreReadFailure StoreErrorKind = iota + 1
	StoreWriteFailure
	StoreCorruptData
)

func (k StoreErrorKind) String() string {
	switch k {
	case StoreReadFailure:
		return "read_failure"
	case StoreWriteFailure:
		return "write_failure"
	case StoreCorruptData:
		return "corrupt_data"
	default:
		return "unknown"
	}
}

// StoreError describes a storage failure for one key. Store errors are
// always recovered locally and never reach the user.
type StoreError struct {
	Kind StoreErrorKind
	Key  Key
	Err  error
}

// NewStoreError wraps err as a StoreError of the given kind.
func NewStoreError(kind StoreErrorKind, key Key, err error) *StoreError {
	return &StoreError{Kind: kind, Key: key, Err: err}
}

func (e *StoreError) Error() string {
	var base error
	switch e.Kind {
	case StoreReadFailure:
		base = ErrReadFailure
	case StoreWriteFailure:
		base = ErrWriteFailure
	default:
		base = ErrCorruptData
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Key, base)
	}
	return fmt.Sprintf("%s: %v: %v", e.Key, base, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is matches the kind sentinels ErrReadFailure, ErrWriteFailure and
// ErrCorruptData.
func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrReadFailure:
		return e.Kind == StoreReadFailure
	case ErrWriteFailure:
		return e.Kind == StoreWriteFailure
	case ErrCorruptData:
		return e.Kind == StoreCorruptData
	}
	return false
}
