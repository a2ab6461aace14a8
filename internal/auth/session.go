// Package auth implements the session/credential core: password hashing,
// session issuance, and the four role predicates the HTTP middleware
// layers on.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"autograder/pkg/database"
)

// ErrInvalidCredentials is returned by Login when the username/password
// pair does not match a stored credential.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserExists is returned by SignUp when the username or email is
// already registered.
var ErrUserExists = errors.New("user already exists")

const sessionLifetime = time.Hour

// Store is the session/credential store backed by Postgres.
type Store struct {
	db *database.DB
}

// NewStore constructs a credential/session Store over the given pool.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// credentialHash computes hash = SHA-512(user_name[:n/2] || password || user_name[n/2:]).
// The salt is derived from the username itself; this is a known weakness
// preserved only for compatibility with existing stored hashes.
func credentialHash(username, password string) []byte {
	n := len(username)
	half := n / 2
	buf := make([]byte, 0, n+len(password))
	buf = append(buf, username[:half]...)
	buf = append(buf, password...)
	buf = append(buf, username[half:]...)
	sum := sha512.Sum512(buf)
	return sum[:]
}

// newSessionToken generates 128 random bits and returns both the raw
// bytes (to be base64'd and handed to the client) and their SHA-512
// digest (stored server-side as session_hash).
func newSessionToken() (raw []byte, hash []byte, err error) {
	raw = make([]byte, 16)
	if _, err = rand.Read(raw); err != nil {
		return nil, nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	sum := sha512.Sum512(raw)
	return raw, sum[:], nil
}

// decodeToken reverses the client-facing base64 token into the hash used
// to look up the session row.
func decodeToken(token string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed session token: %w", err)
	}
	sum := sha512.Sum512(raw)
	return sum[:], nil
}

// SignUp inserts a new User and Credential, then immediately logs the
// user in and returns a fresh session token.
func (s *Store) SignUp(ctx context.Context, firstName, lastName, username, email, password string) (string, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, user_name, email, is_admin)
		 VALUES ($1, $2, $3, lower($4), FALSE)
		 RETURNING id;`,
		firstName, lastName, username, email,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("create user: %w", ErrUserExists)
	}

	hash := credentialHash(username, password)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, hash) VALUES ($1, $2);`,
		userID, hash,
	); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit signup: %w", err)
	}

	return s.issueSession(ctx, userID)
}

// Login verifies the given username/password against the stored
// credential hash and, on success, issues a fresh session — deleting any
// prior sessions for that user first (at-most-one active session).
func (s *Store) Login(ctx context.Context, username, password string) (string, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}

	var userID int
	hash := credentialHash(username, password)
	err = tx.QueryRowContext(ctx,
		`SELECT c.user_id FROM credentials c
		 JOIN users u ON u.id = c.user_id
		 WHERE u.user_name = $1 AND c.hash = $2;`,
		username, hash,
	).Scan(&userID)
	tx.Rollback()
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup credential: %w", err)
	}

	return s.issueSession(ctx, userID)
}

// issueSession deletes all prior sessions for userID and inserts a new
// one, returning the client-facing base64 token.
func (s *Store) issueSession(ctx context.Context, userID int) (string, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_session WHERE user_id = $1;`, userID); err != nil {
		return "", fmt.Errorf("clear prior sessions: %w", err)
	}

	raw, hash, err := newSessionToken()
	if err != nil {
		return "", err
	}

	expiration := time.Now().Add(sessionLifetime)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_session (session_hash, user_id, expiration) VALUES ($1, $2, $3);`,
		hash, userID, expiration,
	); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// Valid reports whether token names a non-expired session.
func (s *Store) Valid(ctx context.Context, token string) (bool, error) {
	_, ok, err := s.userIDForSession(ctx, token)
	return ok, err
}

// UserID resolves a bearer token to the owning user id.
func (s *Store) UserID(ctx context.Context, token string) (int, bool, error) {
	return s.userIDForSession(ctx, token)
}

func (s *Store) userIDForSession(ctx context.Context, token string) (int, bool, error) {
	hash, err := decodeToken(token)
	if err != nil {
		return 0, false, nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int
	var expiration time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expiration FROM user_session WHERE session_hash = $1;`,
		hash,
	).Scan(&userID, &expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup session: %w", err)
	}

	if time.Now().After(expiration) {
		return 0, false, nil
	}
	return userID, true, nil
}

// IsAdmin reports whether token belongs to a user with is_admin = true.
func (s *Store) IsAdmin(ctx context.Context, token string) (bool, error) {
	userID, ok, err := s.userIDForSession(ctx, token)
	if err != nil || !ok {
		return false, err
	}

	db := s.db.Raw()
	var isAdmin bool
	err = db.QueryRowContext(ctx, `SELECT is_admin FROM users WHERE id = $1;`, userID).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("lookup admin flag: %w", err)
	}
	return isAdmin, nil
}

// IsInstructor reports whether token's session belongs to a user enrolled
// in classNumber with is_instructor = true. Admins are NOT implicitly
// instructors — this predicate never falls back to the admin flag.
func (s *Store) IsInstructor(ctx context.Context, token, classNumber string) (bool, error) {
	userID, ok, err := s.userIDForSession(ctx, token)
	if err != nil || !ok {
		return false, err
	}

	db := s.db.Raw()
	var isInstructor bool
	err = db.QueryRowContext(ctx,
		`SELECT is_instructor FROM user_class WHERE class_number = $1 AND user_id = $2;`,
		classNumber, userID,
	).Scan(&isInstructor)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup enrollment: %w", err)
	}
	return isInstructor, nil
}

// IsStudent reports whether token's session belongs to a user enrolled in
// classNumber with is_instructor = false. An enrollment row found with
// is_instructor = true means NOT a student of that class, hence the
// inversion below — mirrors the original predicate exactly. Admins are
// NOT implicitly students.
func (s *Store) IsStudent(ctx context.Context, token, classNumber string) (bool, error) {
	userID, ok, err := s.userIDForSession(ctx, token)
	if err != nil || !ok {
		return false, err
	}

	db := s.db.Raw()
	var isInstructor bool
	err = db.QueryRowContext(ctx,
		`SELECT is_instructor FROM user_class WHERE class_number = $1 AND user_id = $2;`,
		classNumber, userID,
	).Scan(&isInstructor)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup enrollment: %w", err)
	}
	return !isInstructor, nil
}
