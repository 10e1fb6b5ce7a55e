package echobackend

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps threads and their queued replies in memory.
type Store struct {
	mu      sync.Mutex
	threads map[string][]string
}

func NewStore() *Store {
	return &Store{threads: map[string][]string{}}
}

func (s *Store) CreateThread() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.threads[id] = nil
	s.mu.Unlock()
	return id
}

func (s *Store) Exists(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.threads[threadID]
	return ok
}

// Enqueue appends a reply for threadID. It reports false for unknown threads.
func (s *Store) Enqueue(threadID, reply string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue, ok := s.threads[threadID]
	if !ok {
		return false
	}
	s.threads[threadID] = append(queue, reply)
	return true
}

// Pop removes and returns the oldest queued reply. An empty string means
// nothing is queued; ok is false for unknown threads.
func (s *Store) Pop(threadID string) (reply string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue, ok := s.threads[threadID]
	if !ok {
		return "", false
	}
	if len(queue) == 0 {
		return "", true
	}
	reply = queue[0]
	s.threads[threadID] = queue[1:]
	return reply, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
