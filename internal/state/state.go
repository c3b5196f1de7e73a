package state

import (
	"log"
	"sync"

	"github.com/pageproc/page-processor-back/internal/domain"
)

// Observer receives the full current state on every change, or nil when
// the state has been cleared.
type Observer func(*domain.ProcessingState)

// ObserverHandle identifies a registered observer for later removal.
type ObserverHandle int64

type observerEntry struct {
	handle ObserverHandle
	fn     Observer
}

// Update is a partial patch applied to the current state. Nil fields are
// left untouched.
type Update struct {
	Stage       *domain.Stage
	Progress    *float64
	StatusText  *string
	ResultTabID *int
	QueueSize   *int
	Error       *string
}

// Store holds the single mutable current-job record and notifies observers
// on every set, patch and clear. Observers run outside the store's lock so
// they may call back into the store without deadlocking.
type Store struct {
	mu         sync.Mutex
	current    *domain.ProcessingState
	observers  []observerEntry
	nextHandle ObserverHandle
	logger     *log.Logger
}

func NewStore(logger *log.Logger) *Store {
	return &Store{logger: logger}
}

// Set replaces the current state wholesale and notifies all observers.
func (s *Store) Set(newState *domain.ProcessingState) {
	s.mu.Lock()
	if newState == nil {
		s.current = nil
	} else {
		clone := *newState
		s.current = &clone
	}
	snapshot := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, snapshot)
}

// Apply shallow-merges the patch into the existing state and notifies
// observers. It is a no-op when no state is currently set.
func (s *Store) Apply(patch Update) bool {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return false
	}
	if patch.Stage != nil {
		s.current.Stage = *patch.Stage
	}
	if patch.Progress != nil {
		s.current.Progress = *patch.Progress
	}
	if patch.StatusText != nil {
		s.current.StatusText = *patch.StatusText
	}
	if patch.ResultTabID != nil {
		s.current.ResultTabID = *patch.ResultTabID
	}
	if patch.QueueSize != nil {
		s.current.QueueSize = *patch.QueueSize
	}
	if patch.Error != nil {
		s.current.Error = *patch.Error
	}
	snapshot := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, snapshot)
	return true
}

// Clear drops the current state and notifies observers with nil.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	observers := s.observersLocked()
	s.mu.Unlock()

	s.notify(observers, nil)
}

// Get returns a copy of the current state, or nil when no job is active.
func (s *Store) Get() *domain.ProcessingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AddObserver registers a callback invoked on every state change. When a
// state already exists the callback fires immediately so late subscribers
// catch up.
func (s *Store) AddObserver(fn Observer) ObserverHandle {
	s.mu.Lock()
	s.nextHandle++
	handle := s.nextHandle
	s.observers = append(s.observers, observerEntry{handle: handle, fn: fn})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if snapshot != nil {
		s.invoke(fn, snapshot)
	}
	return handle
}

// RemoveObserver unregisters the observer. Removing an unknown handle is
// a no-op.
func (s *Store) RemoveObserver(handle ObserverHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.observers {
		if entry.handle == handle {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Store) snapshotLocked() *domain.ProcessingState {
	if s.current == nil {
		return nil
	}
	clone := *s.current
	return &clone
}

func (s *Store) observersLocked() []observerEntry {
	return append([]observerEntry(nil), s.observers...)
}

func (s *Store) notify(observers []observerEntry, snapshot *domain.ProcessingState) {
	for _, entry := range observers {
		// Each observer gets its own copy so one callback cannot mutate
		// what the next one sees.
		if snapshot == nil {
			s.invoke(entry.fn, nil)
			continue
		}
		clone := *snapshot
		s.invoke(entry.fn, &clone)
	}
}

// invoke shields the notification cycle from a misbehaving observer: a
// panic is logged and the remaining observers still run.
func (s *Store) invoke(fn Observer, snapshot *domain.ProcessingState) {
	defer func() {
		if recovered := recover(); recovered != nil && s.logger != nil {
			s.logger.Printf("state observer panicked: %v", recovered)
		}
	}()
	fn(snapshot)
}
