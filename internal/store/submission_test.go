package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autograder/pkg/database"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(database.NewFromPool(db)), mock
}

func TestMarkAsSubmitted_ComputesLateness(t *testing.T) {
	s, mock := newTestStore(t)
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	submissionTime := deadline.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT deadline FROM assignments WHERE id = $1;`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"deadline"}).AddRow(deadline))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_task_grade`)).
		WithArgs(1, 2, 7, true, []byte("zip-bytes")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	wasLate, err := s.MarkAsSubmitted(context.Background(), 1, 7, 2, submissionTime, []byte("zip-bytes"))

	require.NoError(t, err)
	assert.True(t, wasLate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionInProgress_TrueWhenGradeAndErrorNull(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	inProgress, err := s.SubmissionInProgress(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.True(t, inProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerMarkTaskFailed_SetsErrorColumn(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE user_task_grade SET error = $1 WHERE user_id = $2 AND task_id = $3;`)).
		WithArgs("build failed", 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ContainerMarkTaskFailed(context.Background(), 1, 2, "build failed")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTaskScore_NoRowsReturnsNil(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT json_results FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`)).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"json_results"}))
	mock.ExpectRollback()

	result, err := s.GetTaskScore(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Nil(t, result)
}
