// Package pgstore keeps rosters in PostgreSQL. Mutations lock the activity row
// so concurrent signups for the same activity are serialized.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mergington-activities/internal/activities"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS activities (
	name             TEXT PRIMARY KEY,
	description      TEXT NOT NULL,
	schedule         TEXT NOT NULL,
	max_participants INTEGER NOT NULL CHECK (max_participants > 0)
);
CREATE TABLE IF NOT EXISTS activity_participants (
	activity_name TEXT NOT NULL REFERENCES activities (name) ON DELETE CASCADE,
	email         TEXT NOT NULL,
	position      BIGSERIAL,
	signed_up_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (activity_name, email)
);`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// List reads every activity and its roster in one statement, so the result is
// a single snapshot even while signups commit concurrently.
func (s *Store) List(ctx context.Context) (map[string]activities.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.name, a.description, a.schedule, a.max_participants, p.email
		FROM activities a
		LEFT JOIN activity_participants p ON p.activity_name = a.name
		ORDER BY a.name, p.position`)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]activities.Activity)
	for rows.Next() {
		var (
			a     activities.Activity
			email sql.NullString
		)
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants, &email); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		cur, ok := out[a.Name]
		if !ok {
			cur = a
			cur.Participants = []string{}
		}
		if email.Valid {
			cur.Participants = append(cur.Participants, email.String)
		}
		out[a.Name] = cur
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func (s *Store) AddParticipant(ctx context.Context, activityName, email string, enforceCapacity bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		capacity, err := lockActivity(ctx, tx, activityName)
		if err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM activity_participants
				WHERE activity_name = $1 AND email = $2
			)`, activityName, email).Scan(&exists)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if exists {
			return activities.ErrAlreadySignedUp
		}

		if enforceCapacity {
			var count int
			err = tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM activity_participants WHERE activity_name = $1`,
				activityName).Scan(&count)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if count >= capacity {
				return activities.ErrActivityFull
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO activity_participants (activity_name, email) VALUES ($1, $2)`,
			activityName, email)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return activities.ErrAlreadySignedUp
			}
			return fmt.Errorf("insert participant: %w", err)
		}
		return nil
	})
}

func (s *Store) RemoveParticipant(ctx context.Context, activityName, email string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockActivity(ctx, tx, activityName); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM activity_participants WHERE activity_name = $1 AND email = $2`,
			activityName, email)
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		if n == 0 {
			return activities.ErrNotSignedUp
		}
		return nil
	})
}

func (s *Store) Seed(ctx context.Context, seed []activities.Activity) (int, error) {
	added := 0
	for _, a := range seed {
		a := a
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO activities (name, description, schedule, max_participants)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO NOTHING`,
				a.Name, a.Description, a.Schedule, a.MaxParticipants)
			if err != nil {
				return fmt.Errorf("insert activity: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert activity: %w", err)
			}
			if n == 0 {
				return nil
			}
			for _, p := range a.Participants {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO activity_participants (activity_name, email)
					VALUES ($1, $2)
					ON CONFLICT DO NOTHING`, a.Name, p)
				if err != nil {
					return fmt.Errorf("insert participant %q: %w", p, err)
				}
			}
			added++
			return nil
		})
		if err != nil {
			return added, fmt.Errorf("seed %q: %w", a.Name, err)
		}
	}
	return added, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockActivity takes a row lock on the activity and returns its capacity.
func lockActivity(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	var capacity int
	err := tx.QueryRowContext(ctx,
		`SELECT max_participants FROM activities WHERE name = $1 FOR UPDATE`,
		name).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, activities.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock activity: %w", err)
	}
	return capacity, nil
}
