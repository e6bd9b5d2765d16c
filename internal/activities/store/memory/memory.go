// Package memory keeps rosters in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"mergington-activities/internal/activities"
)

// Store is a map of activities guarded by a single lock; every mutation runs
// its checks and its write under the same critical section.
type Store struct {
	mu         sync.RWMutex
	activities map[string]*activities.Activity
}

func New() *Store {
	return &Store{activities: make(map[string]*activities.Activity)}
}

func (s *Store) List(_ context.Context) (map[string]activities.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]activities.Activity, len(s.activities))
	for name, a := range s.activities {
		out[name] = a.Clone()
	}
	return out, nil
}

func (s *Store) AddParticipant(_ context.Context, activityName, email string, enforceCapacity bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[activityName]
	if !ok {
		return activities.ErrNotFound
	}
	if a.HasParticipant(email) {
		return activities.ErrAlreadySignedUp
	}
	if enforceCapacity && a.SpotsLeft() == 0 {
		return activities.ErrActivityFull
	}
	a.Participants = append(a.Participants, email)
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, activityName, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[activityName]
	if !ok {
		return activities.ErrNotFound
	}
	for i, p := range a.Participants {
		if p == email {
			a.Participants = append(a.Participants[:i], a.Participants[i+1:]...)
			return nil
		}
	}
	return activities.ErrNotSignedUp
}

func (s *Store) Seed(_ context.Context, seed []activities.Activity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, a := range seed {
		if _, exists := s.activities[a.Name]; exists {
			continue
		}
		c := a.Clone()
		s.activities[a.Name] = &c
		added++
	}
	return added, nil
}
