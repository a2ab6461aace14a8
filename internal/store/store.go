// Package store is the grading state repository: classes, enrollments,
// assignments, tasks, tests, and the per-user-per-task grade records the
// scheduler and sandbox executor read and write.
package store

import (
	"context"
	"errors"

	"autograder/pkg/database"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Store is the repository over the grading schema, built on the
// process-wide *database.DB handle.
type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Ping checks database reachability for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Raw().PingContext(ctx)
}
