package tap

import (
	"sync"
	"time"
)

// Borrower is the person whose entry tap most recently preceded a
// resource tap. The tap itself carries no "who is borrowing" signal, so
// the dispatcher pairs a resource entry with the last person who entered
// within a short window.
type Borrower struct {
	PersonID int64
	Name     string
	Seen     time.Time
}

type borrowerStore struct {
	mu      sync.RWMutex
	current *Borrower
}

func newBorrowerStore() *borrowerStore {
	return &borrowerStore{}
}

func (s *borrowerStore) remember(personID int64, name string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Borrower{PersonID: personID, Name: name, Seen: now}
}

func (s *borrowerStore) forget(personID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.PersonID == personID {
		s.current = nil
	}
}

// within returns the current borrower if their entry tap happened inside
// the pairing window.
func (s *borrowerStore) within(now time.Time, window time.Duration) (Borrower, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || now.Sub(s.current.Seen) > window {
		return Borrower{}, false
	}
	return *s.current, true
}
