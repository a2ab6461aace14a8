package httpapi

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autograder/internal/auth"
	"autograder/internal/config"
	"autograder/internal/events"
	"autograder/internal/scheduler"
	"autograder/internal/store"
	"autograder/pkg/database"
	"autograder/pkg/kafka"
	"autograder/pkg/logger"
	"autograder/pkg/validation"
)

var testRawToken = []byte("0123456789abcdef")
var validToken = base64.StdEncoding.EncodeToString(testRawToken)

func sessionHash() []byte {
	sum := sha512.Sum512(testRawToken)
	return sum[:]
}

// expectSessionLookup primes the sqlmock expectations for one
// auth.Store.userIDForSession call: begin, lookup by session hash,
// rollback (read-only, matching session.go's defer tx.Rollback()).
func expectSessionLookup(mock sqlmock.Sqlmock, userID int, expiration time.Time) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, expiration FROM user_session WHERE session_hash = $1;`)).
		WithArgs(sessionHash()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expiration"}).AddRow(userID, expiration))
	mock.ExpectRollback()
}

type noopExecutor struct{}

func (noopExecutor) Run(ctx context.Context, entry scheduler.ContainerEntry) ([]byte, float64, error) {
	return nil, 0, nil
}

type noopResultStore struct{}

func (noopResultStore) RecordSuccess(ctx context.Context, userID, taskID int, resultsJSON []byte, score float64) error {
	return nil
}
func (noopResultStore) RecordFailure(ctx context.Context, userID, taskID int, errMsg string) error {
	return nil
}

type alwaysAllow struct{}

func (alwaysAllow) AllowLogin(clientIP string) (bool, time.Duration, error)    { return true, 0, nil }
func (alwaysAllow) AllowRegister(clientIP string) (bool, time.Duration, error) { return true, 0, nil }

func newTestAPI(t *testing.T) (*API, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	db := database.NewFromPool(pool)
	log := logger.NewLogger("error")
	cfg := &config.Config{Sandbox: config.SandboxConfig{DockerfilesDir: t.TempDir()}}

	dispatcher := scheduler.New(8, 2, noopExecutor{}, noopResultStore{}, nil, log)
	pub := events.New(kafka.NewProducer(nil, "", false), log)

	a := New(
		auth.NewStore(db),
		store.New(db),
		dispatcher,
		pub,
		alwaysAllow{},
		validation.NewValidator(),
		log,
		cfg,
	)
	return a, mock
}

func TestRequireAdmin_MissingTokenIs401(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/create_class", nil)
	rec := httptest.NewRecorder()

	a.requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_NonAdminIs403(t *testing.T) {
	a, mock := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/create_class", nil)
	req.Header.Set("Authorization", validToken)
	rec := httptest.NewRecorder()

	expectSessionLookup(mock, 42, time.Now().Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT is_admin FROM users WHERE id = $1;`)).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(false))

	a.requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run for a non-admin")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleHealthz_DatabaseUnreachable(t *testing.T) {
	a, mock := newTestAPI(t)
	mock.ExpectPing().WillReturnError(assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.handleHealthz(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHealthz_DatabaseReachable(t *testing.T) {
	a, mock := newTestAPI(t)
	mock.ExpectPing()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.handleHealthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSubmit_WithoutRouteParamsIs400(t *testing.T) {
	a, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/student/CS101/1/2/submit", nil)
	rec := httptest.NewRecorder()
	a.handleSubmit(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
