package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oa-lab/hrdesk/dao/model"
)

// Kind classifies the recoverable, caller-facing errors the engine
// surfaces. The engine never panics the host process; every failed call
// returns one of these kinds and leaves no ledger trace.
type Kind uint8

const (
	// KindInvalidTransition - the requested status change is not an edge
	// of the item's state graph from its current state.
	KindInvalidTransition Kind = iota + 1
	// KindUnauthorized - the actor's role is not permitted for the edge,
	// or the actor is not the current owning role of a consultation.
	KindUnauthorized
	// KindPreconditionFailed - unit approval attempted while required
	// document slots are not all verified.
	KindPreconditionFailed
	// KindConsultationClosed - write attempted against a resolved or
	// closed consultation.
	KindConsultationClosed
	// KindStaleState - optimistic-concurrency conflict; the caller must
	// re-fetch and retry.
	KindStaleState
	// KindValidation - a mandatory field (typically the note) is missing.
	KindValidation
	// KindNotFound - the referenced item does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidTransition:
		return "invalid_transition"
	case KindUnauthorized:
		return "unauthorized"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindConsultationClosed:
		return "consultation_closed"
	case KindStaleState:
		return "stale_state"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the engine's error type. The message always names the
// specific reason so callers can surface it to the human actor.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// KindOf extracts the workflow error kind, or 0 for foreign errors.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return 0
}

// IsStale reports whether the caller should re-fetch and retry.
func IsStale(err error) bool {
	return KindOf(err) == KindStaleState
}

func errInvalidTransition(from model.RequestStatus, action RequestAction) error {
	return &Error{
		Kind: KindInvalidTransition,
		Msg:  fmt.Sprintf("cannot %s a request in state %q", action, from),
	}
}

func errInvalidConsultationTransition(from model.ConsultationStatus, what string) error {
	return &Error{
		Kind: KindInvalidTransition,
		Msg:  fmt.Sprintf("cannot %s a consultation in state %q", what, from),
	}
}

func errUnauthorized(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

func errPreconditionFailed(outstanding []string) error {
	return &Error{
		Kind: KindPreconditionFailed,
		Msg:  fmt.Sprintf("documents not verified: %s", strings.Join(outstanding, ", ")),
	}
}

func errConsultationClosed(status model.ConsultationStatus) error {
	return &Error{
		Kind: KindConsultationClosed,
		Msg:  fmt.Sprintf("consultation is %s and accepts no further writes", status),
	}
}

func errStaleState(what string, id uint) error {
	return &Error{
		Kind: KindStaleState,
		Msg:  fmt.Sprintf("%s %d changed since it was read, re-fetch and retry", what, id),
	}
}

func errValidation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func errNotFound(what string, id uint) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %d not found", what, id)}
}
