// Package health holds the process-wide status of the mailbox intake lane.
package health

import (
	"sync"
	"time"
)

// MaxErrors is the capacity of the error ring
const MaxErrors = 5

// ErrorEntry is a timestamped error message
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Status is a read-only copy of the health state
type Status struct {
	Connected            bool         `json:"connected"`
	LastMessageTimestamp *time.Time   `json:"last_message_timestamp"`
	LastProcessedUID     uint32       `json:"last_processed_uid"`
	MessagesProcessed    uint64       `json:"messages_processed"`
	Errors               []ErrorEntry `json:"errors"`
}

// State is mutated only through SetConnected, RecordMessage and RecordError.
type State struct {
	mu        sync.RWMutex
	connected bool
	lastAt    time.Time
	lastUID   uint32
	processed uint64
	errors    []ErrorEntry
	now       func() time.Time
}

// New creates an empty health state
func New() *State {
	return &State{now: time.Now}
}

// SetConnected records the mailbox session state
func (s *State) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// RecordMessage records a processed message
func (s *State) RecordMessage(uid uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAt = s.now()
	if uid > s.lastUID {
		s.lastUID = uid
	}
	s.processed++
}

// RecordError appends an error, evicting the oldest once the ring is full
func (s *State) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEntry{Timestamp: s.now(), Message: err.Error()})
	if len(s.errors) > MaxErrors {
		s.errors = s.errors[len(s.errors)-MaxErrors:]
	}
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Connected:         s.connected,
		LastProcessedUID:  s.lastUID,
		MessagesProcessed: s.processed,
		Errors:            make([]ErrorEntry, len(s.errors)),
	}
	copy(st.Errors, s.errors)
	if !s.lastAt.IsZero() {
		at := s.lastAt
		st.LastMessageTimestamp = &at
	}
	return st
}
