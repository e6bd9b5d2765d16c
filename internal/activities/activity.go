package activities

import (
	"context"
	"errors"
	"time"

	"mergington-activities/pkg/catalog"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound        = errors.New("activity not found")
	ErrAlreadySignedUp = errors.New("student already signed up")
	ErrNotSignedUp     = errors.New("student not signed up")
	ErrActivityFull    = errors.New("activity is full")
)

// Activity is an extracurricular offering and its roster. Name is the
// registry key and is not part of the serialized record.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// Clone returns a deep copy. Participants is never nil in the copy.
func (a Activity) Clone() Activity {
	out := a
	out.Participants = make([]string, len(a.Participants))
	copy(out.Participants, a.Participants)
	return out
}

// HasParticipant reports whether email is on the roster.
func (a Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// SpotsLeft is capacity minus current roster size, floored at zero.
func (a Activity) SpotsLeft() int {
	if left := a.MaxParticipants - len(a.Participants); left > 0 {
		return left
	}
	return 0
}

// Store holds rosters. Implementations must perform the existence check,
// duplicate check, optional capacity check and append as one atomic step.
type Store interface {
	List(ctx context.Context) (map[string]Activity, error)
	AddParticipant(ctx context.Context, activityName, email string, enforceCapacity bool) error
	RemoveParticipant(ctx context.Context, activityName, email string) error
	// Seed inserts activities that do not exist yet and returns how many were added.
	Seed(ctx context.Context, activities []Activity) (int, error)
}

// SignupEvent is handed to the Notifier after a successful signup.
type SignupEvent struct {
	ID         string    `json:"id"`
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier is told about completed signups. Errors are logged, never returned
// to the caller of Signup.
type Notifier interface {
	SignupConfirmed(ctx context.Context, event SignupEvent) error
}

// FromCatalog converts catalog entries into registry records.
func FromCatalog(cat *catalog.Catalog) []Activity {
	out := make([]Activity, 0, len(cat.Activities))
	for _, e := range cat.Activities {
		out = append(out, Activity{
			Name:            e.Name,
			Description:     e.Description,
			Schedule:        e.Schedule,
			MaxParticipants: e.MaxParticipants,
			Participants:    append([]string{}, e.Participants...),
		})
	}
	return out
}
