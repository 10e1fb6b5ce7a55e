// Package widget holds the chat widget's UI state and the pure handlers that
// move it from one state to the next.
//
// Handlers never perform I/O. Work that has to reach the backend is returned as
// Effects for the host (the terminal UI or a test) to run; its outcome comes
// back as further events.
package widget

import (
	"strings"

	"github.com/go-go-golems/chatwidget/pkg/exchange"
)

type State struct {
	Open       bool
	Input      string
	ThreadID   string
	Acquiring  bool
	// Submitting is set from the moment a message is handed to the exchange
	// until the exchange reports its first state change.
	Submitting bool
	Messages   []exchange.Message
	Exchange   exchange.State
	LastError  error
}

// CanSubmit reports whether the input accepts a new submission.
func (s State) CanSubmit() bool {
	return s.Exchange == exchange.StateIdle && !s.Submitting
}

// Waiting reports whether a waiting indicator should be shown.
func (s State) Waiting() bool {
	return s.Exchange != exchange.StateIdle || s.Acquiring || s.Submitting
}

type Event interface {
	isWidgetEvent()
}

type (
	// Toggle flips the panel between closed and open.
	Toggle struct{}
	// Close closes the panel; closing an already closed panel is a no-op.
	Close        struct{}
	InputChanged struct{ Value string }
	// Submit is the user pressing enter or the send button.
	Submit         struct{}
	ThreadAcquired struct{ ThreadID string }
	ThreadFailed   struct{ Err error }
	// MessageAppended, ExchangeStateChanged and ExchangeFailed mirror exchange events.
	MessageAppended      struct{ Message exchange.Message }
	ExchangeStateChanged struct{ State exchange.State }
	ExchangeFailed       struct{ Err error }
)

// SubmitRejected reports a submission the exchange refused to start.
type SubmitRejected struct {
	Text string
	Err  error
}

func (Toggle) isWidgetEvent()               {}
func (Close) isWidgetEvent()                {}
func (InputChanged) isWidgetEvent()         {}
func (Submit) isWidgetEvent()               {}
func (ThreadAcquired) isWidgetEvent()       {}
func (ThreadFailed) isWidgetEvent()         {}
func (MessageAppended) isWidgetEvent()      {}
func (ExchangeStateChanged) isWidgetEvent() {}
func (ExchangeFailed) isWidgetEvent()       {}
func (SubmitRejected) isWidgetEvent()       {}

type Effect interface {
	isWidgetEffect()
}

type (
	AcquireThread struct{}
	SendMessage   struct{ Text string }
)

func (AcquireThread) isWidgetEffect() {}
func (SendMessage) isWidgetEffect()   {}

// FromExchangeEvent converts an exchange observer event into a widget event.
func FromExchangeEvent(e exchange.Event) (Event, bool) {
	switch e := e.(type) {
	case exchange.MessageAppended:
		return MessageAppended{Message: e.Message}, true
	case exchange.StateChanged:
		return ExchangeStateChanged{State: e.To}, true
	case exchange.ExchangeFailed:
		return ExchangeFailed{Err: e.Err}, true
	}
	return nil, false
}

// Reduce applies ev to s and returns the next state along with the effects the
// host must run.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Toggle:
		s.Open = !s.Open
		if s.Open && s.ThreadID == "" && !s.Acquiring {
			s.Acquiring = true
			return s, []Effect{AcquireThread{}}
		}
		return s, nil

	case Close:
		s.Open = false
		return s, nil

	case InputChanged:
		if !s.CanSubmit() {
			return s, nil
		}
		s.Input = ev.Value
		return s, nil

	case Submit:
		if !s.CanSubmit() || strings.TrimSpace(s.Input) == "" {
			return s, nil
		}
		text := s.Input
		s.Input = ""
		s.Submitting = true
		return s, []Effect{SendMessage{Text: text}}

	case ThreadAcquired:
		s.Acquiring = false
		s.ThreadID = ev.ThreadID
		s.LastError = nil
		return s, nil

	case ThreadFailed:
		s.Acquiring = false
		s.LastError = ev.Err
		return s, nil

	case MessageAppended:
		msgs := make([]exchange.Message, len(s.Messages), len(s.Messages)+1)
		copy(msgs, s.Messages)
		s.Messages = append(msgs, ev.Message)
		return s, nil

	case ExchangeStateChanged:
		s.Exchange = ev.State
		s.Submitting = false
		if ev.State == exchange.StateSending || ev.State == exchange.StateIdle {
			s.Acquiring = false
		}
		return s, nil

	case ExchangeFailed:
		s.LastError = ev.Err
		return s, nil

	case SubmitRejected:
		s.Submitting = false
		s.LastError = ev.Err
		if s.Input == "" {
			s.Input = ev.Text
		}
		return s, nil
	}
	return s, nil
}

// LastAssistantMessage returns the most recent assistant reply in s.
func (s State) LastAssistantMessage() (exchange.Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == exchange.RoleAssistant {
			return s.Messages[i], true
		}
	}
	return exchange.Message{}, false
}
