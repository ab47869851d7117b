package api

import (
	"context"
	"sort"
	"sync"

	"s7bench/bench"
)

// DefaultHistory is the number of reports a Store keeps when no limit is given.
const DefaultHistory = 100

// Store keeps the reports of finished runs for the status API. It
// implements bench.Publisher so it can sit alongside the external sinks.
type Store struct {
	mu      sync.RWMutex
	limit   int
	history []*bench.Report
	latest  map[string]*bench.Report

	listeners      map[int]func(*bench.Report)
	nextListenerID int
}

// NewStore creates a store that retains at most limit reports.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Store{
		limit:     limit,
		latest:    make(map[string]*bench.Report),
		listeners: make(map[int]func(*bench.Report)),
	}
}

// Name identifies the store as a report sink.
func (s *Store) Name() string { return "api" }

// Publish records the report and notifies listeners.
func (s *Store) Publish(_ context.Context, rep *bench.Report) error {
	s.mu.Lock()
	s.history = append(s.history, rep)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append([]*bench.Report(nil), s.history[over:]...)
	}
	s.latest[rep.Driver] = rep

	listeners := make([]func(*bench.Report), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(rep)
	}
	return nil
}

// All returns the retained reports, oldest first.
func (s *Store) All() []*bench.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*bench.Report, len(s.history))
	copy(out, s.history)
	return out
}

// Latest returns the most recent report, or nil before the first run.
func (s *Store) Latest() *bench.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// ByDriver returns the most recent report of the named driver, or nil.
func (s *Store) ByDriver(name string) *bench.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[name]
}

// Drivers returns the names of drivers that have reported, sorted.
func (s *Store) Drivers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.latest))
	for name := range s.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of retained reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// AddListener registers fn to be called with every new report. It returns
// an id for RemoveListener.
func (s *Store) AddListener(fn func(*bench.Report)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListenerID++
	s.listeners[s.nextListenerID] = fn
	return s.nextListenerID
}

// RemoveListener unregisters a listener.
func (s *Store) RemoveListener(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}
