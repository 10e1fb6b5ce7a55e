// Package exchange runs the send-then-poll cycle against a chat backend and
// keeps the resulting message log.
//
// An Exchange admits one submission at a time. Submit echoes the user text into
// the log before any network call, delivers it, asks for the reply and appends
// it when non-empty. Every path, including failures, returns the exchange to
// StateIdle.
package exchange

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when Submit is called while another exchange is in flight.
var ErrBusy = errors.New("an exchange is already in progress")

// ThreadSource provides the thread id messages are exchanged on.
type ThreadSource interface {
	AcquireThread(ctx context.Context) (string, error)
	ThreadID() (string, bool)
}

// Backend delivers user text and fetches the assistant reply.
type Backend interface {
	SendMessage(ctx context.Context, threadID string, content string) error
	GetResponse(ctx context.Context, threadID string) (string, error)
}

type Exchange struct {
	threads         ThreadSource
	backend         Backend
	policy          FailurePolicy
	fallbackMessage string
	timeout         time.Duration
	observers       []Observer

	mu      sync.Mutex
	state   State
	log     *MessageLog
	lastErr error
}

type Option func(*Exchange)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Exchange) {
		e.policy = p
	}
}

func WithFallbackMessage(msg string) Option {
	return func(e *Exchange) {
		if strings.TrimSpace(msg) != "" {
			e.fallbackMessage = msg
		}
	}
}

// WithTimeout bounds a whole exchange. Expiry counts as a network failure.
func WithTimeout(d time.Duration) Option {
	return func(e *Exchange) {
		e.timeout = d
	}
}

func WithObserver(o Observer) Option {
	return func(e *Exchange) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func WithMessageLog(l *MessageLog) Option {
	return func(e *Exchange) {
		if l != nil {
			e.log = l
		}
	}
}

func New(threads ThreadSource, backend Backend, options ...Option) *Exchange {
	e := &Exchange{
		threads:         threads,
		backend:         backend,
		policy:          FailureFallback,
		fallbackMessage: DefaultFallbackMessage,
		state:           StateIdle,
		log:             NewMessageLog(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Submit runs one exchange for text. Blank text is ignored. While another
// exchange is running it returns ErrBusy without touching the log. Backend
// failures are recovered according to the failure policy and reported to
// observers and through LastError; Submit itself returns nil for them.
func (e *Exchange) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	e.mu.Lock()
	if e.state != StateIdle {
		state := e.state
		e.mu.Unlock()
		log.Debug().Str("state", state.String()).Msg("rejecting submission while busy")
		return ErrBusy
	}
	_, hasThread := e.threads.ThreadID()
	next := StateSending
	if !hasThread {
		next = StateAwaitingThread
	}
	userMsg := e.log.Append(RoleUser, text)
	e.state = next
	e.lastErr = nil
	e.mu.Unlock()

	e.notify(MessageAppended{Message: userMsg})
	e.notify(StateChanged{From: StateIdle, To: next})
	defer e.setState(StateIdle)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	threadID, err := e.threads.AcquireThread(ctx)
	if err != nil {
		e.handleFailure(chatapi.ErrThreadUnavailable, "create-thread", err)
		return nil
	}
	e.setState(StateSending)

	if err := e.backend.SendMessage(ctx, threadID, text); err != nil {
		e.handleFailure(chatapi.ErrDeliveryFailed, "send-message", err)
		return nil
	}
	e.setState(StateAwaitingReply)

	reply, err := e.backend.GetResponse(ctx, threadID)
	if err != nil {
		e.handleFailure(chatapi.ErrResponseFailed, "get-response", err)
		return nil
	}
	if reply == "" {
		log.Debug().Str("thread_id", threadID).Msg("backend has no reply yet")
		return nil
	}
	e.appendMessage(RoleAssistant, reply)
	return nil
}

func (e *Exchange) handleFailure(kind error, call string, err error) {
	if !errors.Is(err, kind) {
		err = &chatapi.CallError{Kind: kind, Call: call, Err: err}
	}
	log.Warn().Err(err).Str("call", call).Str("policy", string(e.policy)).Msg("exchange failed")

	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.notify(ExchangeFailed{Err: err})

	if e.policy == FailureFallback {
		e.appendMessage(RoleAssistant, e.fallbackMessage)
	}
}

func (e *Exchange) appendMessage(role Role, content string) {
	e.mu.Lock()
	msg := e.log.Append(role, content)
	e.mu.Unlock()
	e.notify(MessageAppended{Message: msg})
}

func (e *Exchange) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev != s {
		e.notify(StateChanged{From: prev, To: s})
	}
}

func (e *Exchange) notify(ev Event) {
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchange) Messages() []Message {
	return e.log.Messages()
}

func (e *Exchange) Log() *MessageLog {
	return e.log
}

// LastError returns the failure recovered during the most recent exchange, if any.
func (e *Exchange) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Exchange) Policy() FailurePolicy {
	return e.policy
}
