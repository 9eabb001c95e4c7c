package fbtft

import (
	"errors"
	"fmt"
)

// Kind classifies driver errors.
type Kind uint8

// Error kinds.
const (
	KindResourceAcquisition Kind = iota + 1 // signal or bus unavailable
	KindAllocation                          // buffer memory unavailable
	KindTransport                           // bus transfer failed
	KindInitialization                      // init sequence failed
	KindInvalidArgument                     // bad mapping or draw request
	KindDoubleRelease                       // resource released twice
	KindRegistration                        // duplicate or rejected registration
)

func (k Kind) String() string {
	switch k {
	case KindResourceAcquisition:
		return "resource acquisition"
	case KindAllocation:
		return "allocation"
	case KindTransport:
		return "transport"
	case KindInitialization:
		return "initialization"
	case KindInvalidArgument:
		return "invalid argument"
	case KindDoubleRelease:
		return "double release"
	case KindRegistration:
		return "registration"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Stage identifies the attach step an error originated from.
type Stage string

// Attach stages, in acquisition order.
const (
	StageReset     Stage = "reset"
	StageDC        Stage = "dc"
	StageBacklight Stage = "backlight"
	StageBus       Stage = "bus"
	StageAlloc     Stage = "alloc"
	StageInit      Stage = "init"
	StageRegister  Stage = "register"
	StageFlush     Stage = "flush"
	StageDetach    Stage = "detach"
)

// Sentinels for errors.Is, one per Kind.
var (
	ErrResourceAcquisition = &Error{Kind: KindResourceAcquisition}
	ErrAllocation          = &Error{Kind: KindAllocation}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrInitialization      = &Error{Kind: KindInitialization}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrDoubleRelease       = &Error{Kind: KindDoubleRelease}
	ErrRegistration        = &Error{Kind: KindRegistration}
)

// Error is the error type returned by the driver.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func newError(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func invalidArgument(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgument, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := "fbtft: " + e.Kind.String()
	if e.Stage != "" {
		msg += " at " + string(e.Stage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind whose stage
// is either empty or equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Stage == "" || t.Stage == e.Stage)
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// StageOf returns the Stage of the first *Error in err's chain.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
