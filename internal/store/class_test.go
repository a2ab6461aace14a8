package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinClass_ExpiredOrMissingCodeReturnsFalse(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT class_number FROM class_join_code WHERE join_code = $1 AND expiration > NOW();`)).
		WithArgs("stale-code").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	class, ok, err := s.JoinClass(context.Background(), 1, "stale-code")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, class)
}

func TestJoinClass_ValidCodeEnrollsAsNonInstructor(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT class_number FROM class_join_code WHERE join_code = $1 AND expiration > NOW();`)).
		WithArgs("good-code").
		WillReturnRows(sqlmock.NewRows([]string{"class_number"}).AddRow("CS101"))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_class (user_id, class_number, is_instructor) VALUES ($1, $2, FALSE);`)).
		WithArgs(1, "CS101").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	class, ok, err := s.JoinClass(context.Background(), 1, "good-code")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CS101", class)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllStudents_ExcludesGivenClass(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN user_class`)).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"first_name", "last_name", "user_name"}).
			AddRow("Ada", "Lovelace", "ada"))
	mock.ExpectCommit()

	users, err := s.ListAllStudents(context.Background(), "CS101")

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada", users[0].Username)
}
