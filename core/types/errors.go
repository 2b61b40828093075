package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies runtime failures.
type ErrorKind int

const (
	KindExecution ErrorKind = iota
	KindOutOfGas
	KindStackOverflow
	KindInvalidOperation
	KindState
	KindStorage
	KindBridge
	KindConfiguration
)

// String returns a human-readable string for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindExecution:
		return "execution_error"
	case KindOutOfGas:
		return "out_of_gas"
	case KindStackOverflow:
		return "stack_overflow"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindState:
		return "state_error"
	case KindStorage:
		return "storage_error"
	case KindBridge:
		return "bridge_error"
	case KindConfiguration:
		return "configuration_error"
	}
	return "unknown"
}

var (
	ErrExecution        = errors.New("execution error")
	ErrOutOfGas         = errors.New("out of gas")
	ErrStackOverflow    = errors.New("stack overflow")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrState            = errors.New("state error")
	ErrStorage          = errors.New("storage error")
	ErrBridge           = errors.New("bridge error")
	ErrConfiguration    = errors.New("configuration error")
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindOutOfGas, ErrOutOfGas},
	{KindStackOverflow, ErrStackOverflow},
	{KindInvalidOperation, ErrInvalidOperation},
	{KindState, ErrState},
	{KindStorage, ErrStorage},
	{KindBridge, ErrBridge},
	{KindConfiguration, ErrConfiguration},
	{KindExecution, ErrExecution},
}

// Sentinel returns the sentinel error matching the kind.
func (k ErrorKind) Sentinel() error {
	for _, s := range kindSentinels {
		if s.kind == k {
			return s.err
		}
	}
	return ErrExecution
}

// KindOf classifies err. Errors that carry no known sentinel are reported as
// execution errors.
func KindOf(err error) ErrorKind {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindExecution
}

// OutOfGasError is returned when a charge would push used gas past the limit.
type OutOfGasError struct {
	Used  uint64
	Limit uint64
}

func (e *OutOfGasError) Error() string {
	return fmt.Sprintf("out of gas: used %d, limit %d", e.Used, e.Limit)
}

func (e *OutOfGasError) Unwrap() error { return ErrOutOfGas }

// RuntimeError is the orchestrator-level error wrapper. Kind decides which
// sentinel errors.Is matches against.
type RuntimeError struct {
	Kind ErrorKind
	Err  error
}

func (e *RuntimeError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RuntimeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Err}
}

// Errorf builds an error of the given kind that matches the kind's sentinel.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind.Sentinel(), fmt.Sprintf(format, args...))
}
