// Package session owns the conversation thread identifier of a single widget.
//
// A Manager acquires a thread from the backend at most once per lifetime.
// Concurrent callers share one in-flight create-thread call; once a thread id
// has been obtained it is cached and returned without touching the network.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ThreadCreator is the backend call used to obtain a new thread.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// DefaultCreateTimeout bounds a shared create-thread call.
const DefaultCreateTimeout = 30 * time.Second

type Manager struct {
	creator       ThreadCreator
	createTimeout time.Duration

	mu       sync.RWMutex
	threadID string

	group singleflight.Group
}

type Option func(*Manager)

// WithCreateTimeout bounds the shared create-thread call. It runs detached from
// the context of the caller that started it, so this is its only deadline.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.createTimeout = d
		}
	}
}

func NewManager(creator ThreadCreator, options ...Option) *Manager {
	m := &Manager{creator: creator, createTimeout: DefaultCreateTimeout}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// AcquireThread returns the cached thread id or creates one. Failures are
// reported as chatapi.ErrThreadUnavailable and leave nothing cached, so a later
// call may try again. Cancelling ctx only abandons this caller's wait; the
// shared call keeps running for the other callers and caches its result.
func (m *Manager) AcquireThread(ctx context.Context) (string, error) {
	if threadID, ok := m.ThreadID(); ok {
		return threadID, nil
	}

	ch := m.group.DoChan("thread", func() (interface{}, error) {
		if threadID, ok := m.ThreadID(); ok {
			return threadID, nil
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.createTimeout)
		defer cancel()

		threadID, err := m.creator.CreateThread(callCtx)
		if err != nil {
			return "", err
		}
		if threadID == "" {
			return "", errors.WithStack(chatapi.ErrThreadUnavailable)
		}

		m.mu.Lock()
		m.threadID = threadID
		m.mu.Unlock()

		log.Info().Str("thread_id", threadID).Msg("acquired thread")
		return threadID, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	if err := res.Err; err != nil {
		log.Warn().Err(err).Bool("shared", res.Shared).Msg("could not acquire thread")
		if !errors.Is(err, chatapi.ErrThreadUnavailable) {
			err = &chatapi.CallError{Kind: chatapi.ErrThreadUnavailable, Call: "create-thread", Err: err}
		}
		return "", err
	}
	return res.Val.(string), nil
}

// ThreadID returns the cached thread id, if any.
func (m *Manager) ThreadID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.threadID, m.threadID != ""
}

func (m *Manager) HasThread() bool {
	_, ok := m.ThreadID()
	return ok
}
