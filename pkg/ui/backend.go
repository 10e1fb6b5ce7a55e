package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/chatwidget/pkg/exchange"
	"github.com/go-go-golems/chatwidget/pkg/widget"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// eventBufferSize covers the events of a few exchanges in case the program is
// slow to drain them.
const eventBufferSize = 64

// backendEventMsg carries an exchange event into the bubbletea program.
type backendEventMsg struct {
	event widget.Event
}

// Backend adapts the exchange client to bubbletea. Widget effects become
// tea.Cmds, and exchange events are forwarded to the program through a channel.
type Backend struct {
	threads  exchange.ThreadSource
	exchange *exchange.Exchange
	events   chan tea.Msg

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBackend builds the Exchange for threads and chat and subscribes to its
// events. Cancelling ctx, or calling Close, aborts running exchanges.
func NewBackend(ctx context.Context, threads exchange.ThreadSource, chat exchange.Backend, options ...exchange.Option) *Backend {
	ctx, cancel := context.WithCancel(ctx)
	b := &Backend{
		threads: threads,
		events:  make(chan tea.Msg, eventBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	options = append(options, exchange.WithObserver(exchange.ObserverFunc(b.forward)))
	b.exchange = exchange.New(threads, chat, options...)
	return b
}

func (b *Backend) Exchange() *exchange.Exchange {
	return b.exchange
}

// Events returns the channel exchange events are delivered on.
func (b *Backend) Events() <-chan tea.Msg {
	return b.events
}

func (b *Backend) Close() {
	b.cancel()
}

func (b *Backend) forward(e exchange.Event) {
	ev, ok := widget.FromExchangeEvent(e)
	if !ok {
		return
	}
	select {
	case b.events <- backendEventMsg{event: ev}:
	case <-b.ctx.Done():
		log.Debug().Msg("dropping exchange event after shutdown")
	}
}

// waitForEvent delivers the next exchange event to the program. The model
// re-arms it after each event.
func (b *Backend) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-b.events:
			return e
		case <-b.ctx.Done():
			return nil
		}
	}
}

// Run turns a widget effect into the command that performs it. Its result comes
// back to the program as a widget event.
func (b *Backend) Run(effect widget.Effect) tea.Cmd {
	switch effect := effect.(type) {
	case widget.AcquireThread:
		return func() tea.Msg {
			threadID, err := b.threads.AcquireThread(b.ctx)
			if err != nil {
				log.Warn().Err(err).Msg("could not acquire thread")
				return widget.ThreadFailed{Err: err}
			}
			log.Debug().Str("thread_id", threadID).Msg("thread acquired")
			return widget.ThreadAcquired{ThreadID: threadID}
		}

	case widget.SendMessage:
		return func() tea.Msg {
			if err := b.exchange.Submit(b.ctx, effect.Text); err != nil {
				if errors.Is(err, exchange.ErrBusy) {
					log.Debug().Msg("submission rejected, exchange busy")
				} else {
					log.Error().Err(err).Msg("submit failed")
				}
				return widget.SubmitRejected{Text: effect.Text, Err: err}
			}
			// Submit may have acquired the thread implicitly
			if threadID, ok := b.threads.ThreadID(); ok {
				return widget.ThreadAcquired{ThreadID: threadID}
			}
			return nil
		}
	}

	log.Warn().Type("effect", effect).Msg("unknown widget effect")
	return nil
}
