package exchange

import (
	"strings"

	"github.com/pkg/errors"
)

// State governs whether new input may be submitted. Only StateIdle accepts input.
type State int

const (
	StateIdle State = iota
	StateAwaitingThread
	StateSending
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingThread:
		return "awaiting-thread"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting-reply"
	default:
		return "unknown"
	}
}

// FailurePolicy decides what the log shows after a failed exchange.
type FailurePolicy string

const (
	// FailureFallback appends one assistant message apologizing for the failure.
	FailureFallback FailurePolicy = "fallback"
	// FailureSilent returns to idle without an assistant message.
	FailureSilent FailurePolicy = "silent"
)

const DefaultFallbackMessage = "Sorry, I'm having trouble connecting. Please try again."

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailureFallback, FailureSilent:
		return p, nil
	default:
		return "", errors.Errorf("unknown failure policy %q (expected fallback or silent)", s)
	}
}
