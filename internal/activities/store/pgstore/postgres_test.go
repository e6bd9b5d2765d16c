package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"mergington-activities/internal/activities"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockQuery = `SELECT max_participants FROM activities WHERE name = \$1 FOR UPDATE`

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS activities`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`LEFT JOIN activity_participants p ON p.activity_name = a.name`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "description", "schedule", "max_participants", "email"}).
			AddRow("Art Club", "Paint", "Thursdays", 15, nil).
			AddRow("Chess Club", "Chess", "Fridays", 12, "michael@mergington.edu").
			AddRow("Chess Club", "Chess", "Fridays", 12, "daniel@mergington.edu"))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, list["Chess Club"].Participants)
	assert.Equal(t, 12, list["Chess Club"].MaxParticipants)
	assert.Equal(t, "Thursdays", list["Art Club"].Schedule)
	assert.NotNil(t, list["Art Club"].Participants)
	assert.Empty(t, list["Art Club"].Participants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ScanError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`LEFT JOIN activity_participants`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "description", "schedule", "max_participants", "email"}).
			AddRow("Chess Club", "Chess", "Fridays", "twelve", nil))

	_, err := s.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan activity")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT a.name, a.description, a.schedule, a.max_participants, p.email`).
		WillReturnError(errors.New("connection refused"))

	_, err := s.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query activities")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_Success(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Gym Class").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(30))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("Gym Class", "new@mergington.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO activity_participants`).WithArgs("Gym Class", "new@mergington.edu").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.AddParticipant(context.Background(), "Gym Class", "new@mergington.edu", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("UnknownClub").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := s.AddParticipant(context.Background(), "UnknownClub", "a@mergington.edu", false)
	assert.ErrorIs(t, err, activities.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_Duplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Gym Class").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(30))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("Gym Class", "john@mergington.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := s.AddParticipant(context.Background(), "Gym Class", "john@mergington.edu", false)
	assert.ErrorIs(t, err, activities.ErrAlreadySignedUp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_UniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Gym Class").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(30))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO activity_participants`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := s.AddParticipant(context.Background(), "Gym Class", "john@mergington.edu", false)
	assert.ErrorIs(t, err, activities.ErrAlreadySignedUp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_Full(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("Math Club").
		WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(2))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_participants`).WithArgs("Math Club").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := s.AddParticipant(context.Background(), "Math Club", "late@mergington.edu", true)
	assert.ErrorIs(t, err, activities.ErrActivityFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddParticipant_BeginError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := s.AddParticipant(context.Background(), "Gym Class", "a@mergington.edu", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveParticipant(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "removed", affected: 1},
		{name: "not on roster", affected: 0, wantErr: activities.ErrNotSignedUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(lockQuery).WithArgs("Chess Club").
				WillReturnRows(sqlmock.NewRows([]string{"max_participants"}).AddRow(12))
			mock.ExpectExec(`DELETE FROM activity_participants`).
				WithArgs("Chess Club", "michael@mergington.edu").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.wantErr == nil {
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			err := s.RemoveParticipant(context.Background(), "Chess Club", "michael@mergington.edu")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSeed(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs("Chess Club", "Chess", "Fridays", 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO activity_participants`).
		WithArgs("Chess Club", "michael@mergington.edu").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activities`).
		WithArgs("Art Club", "Paint", "Thursdays", 15).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	added, err := s.Seed(context.Background(), []activities.Activity{
		{Name: "Chess Club", Description: "Chess", Schedule: "Fridays", MaxParticipants: 12,
			Participants: []string{"michael@mergington.edu"}},
		{Name: "Art Club", Description: "Paint", Schedule: "Thursdays", MaxParticipants: 15,
			Participants: []string{"amelia@mergington.edu"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}
