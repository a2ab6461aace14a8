package store

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autograder/internal/domain"
)

// MarkAsSubmitted clears any prior grade row for (user, task) and inserts
// a fresh one with the submission archive, in a single transaction — this
// is what makes "one submission in flight per (user, task)" atomic.
func (s *Store) MarkAsSubmitted(ctx context.Context, userID, assignmentID, taskID int, submissionTime time.Time, archive []byte) (wasLate bool, err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var deadline time.Time
	err = tx.QueryRowContext(ctx, `SELECT deadline FROM assignments WHERE id = $1;`, assignmentID).Scan(&deadline)
	if err != nil {
		return false, fmt.Errorf("loading deadline: %w", err)
	}

	wasLate = !submissionTime.Before(deadline)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`,
		userID, taskID,
	); err != nil {
		return false, fmt.Errorf("clearing old grade: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_task_grade (user_id, task_id, assignment_id, was_late, submission_zip)
		VALUES ($1, $2, $3, $4, $5);`,
		userID, taskID, assignmentID, wasLate, archive,
	); err != nil {
		return false, fmt.Errorf("inserting grade row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return wasLate, nil
}

// RemoveOldGrade deletes a task's grade row, if any.
func (s *Store) RemoveOldGrade(ctx context.Context, userID, taskID int) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`,
		userID, taskID,
	); err != nil {
		return fmt.Errorf("removing grade: %w", err)
	}

	return tx.Commit()
}

// SubmissionInProgress reports whether (user, task) has a row awaiting
// grading: grade and error are both still NULL.
func (s *Store) SubmissionInProgress(ctx context.Context, userID, taskID int) (bool, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM user_task_grade
			WHERE user_id = $1 AND task_id = $2 AND grade IS NULL AND error IS NULL
		);`,
		userID, taskID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking submission status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	return exists, nil
}

// RecordSuccess implements scheduler.ResultStore: persist graded results.
func (s *Store) RecordSuccess(ctx context.Context, userID, taskID int, resultsJSON []byte, score float64) error {
	return s.ContainerAddTaskGrade(ctx, userID, taskID, resultsJSON, score)
}

// RecordFailure implements scheduler.ResultStore: persist a terminal error.
func (s *Store) RecordFailure(ctx context.Context, userID, taskID int, errMsg string) error {
	return s.ContainerMarkTaskFailed(ctx, userID, taskID, errMsg)
}

// ContainerAddTaskGrade records a completed grading run's results and score.
func (s *Store) ContainerAddTaskGrade(ctx context.Context, userID, taskID int, resultsJSON []byte, grade float64) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_task_grade SET json_results = $1, grade = $2 WHERE user_id = $3 AND task_id = $4;`,
		resultsJSON, grade, userID, taskID,
	); err != nil {
		return fmt.Errorf("recording grade: %w", err)
	}

	return tx.Commit()
}

// ContainerMarkTaskFailed records a terminal grading failure: the row's
// error column is set and grade stays NULL, so submission_in_progress no
// longer reports it in-flight (§9 resolution: failure terminality).
func (s *Store) ContainerMarkTaskFailed(ctx context.Context, userID, taskID int, errMsg string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_task_grade SET error = $1 WHERE user_id = $2 AND task_id = $3;`,
		errMsg, userID, taskID,
	); err != nil {
		return fmt.Errorf("recording failure: %w", err)
	}

	return tx.Commit()
}

// GetTaskScore fetches and decodes a task's stored results, if graded.
func (s *Store) GetTaskScore(ctx context.Context, userID, taskID int) (*domain.SubmissionResponse, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var resultsJSON []byte
	err = tx.QueryRowContext(ctx,
		`SELECT json_results FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`,
		userID, taskID,
	).Scan(&resultsJSON)
	if err == sql.ErrNoRows || (err == nil && resultsJSON == nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	var sr domain.SubmissionResponse
	if err := json.Unmarshal(resultsJSON, &sr); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}

	return &sr, nil
}

// DownloadSubmission bundles every stored submission archive for a user's
// assignment into a single zip and returns its bytes, or nil if the user
// has no submissions for that assignment.
func (s *Store) DownloadSubmission(ctx context.Context, username string, assignmentID int, downloadRoot string) ([]byte, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var userID int
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE user_name = $1;`, username).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT task_id, submission_zip FROM user_task_grade
		JOIN tasks ON tasks.id = task_id
		WHERE user_id = $1 AND tasks.assignment_id = $2;`,
		userID, assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading submissions: %w", err)
	}

	var archives []submissionArchive
	for rows.Next() {
		var a submissionArchive
		if err := rows.Scan(&a.taskID, &a.data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		archives = append(archives, a)
	}
	closeErr := rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if len(archives) == 0 {
		return nil, nil
	}

	workdir := filepath.Join(downloadRoot, fmt.Sprintf("%s-%d", username, assignmentID))
	if err := os.RemoveAll(workdir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(workdir)

	return bundleZip(archives, workdir)
}

type submissionArchive struct {
	taskID int
	data   []byte
}

func bundleZip(archives []submissionArchive, workdir string) ([]byte, error) {
	path := filepath.Join(workdir, "bundle.zip")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating bundle: %w", err)
	}

	w := zip.NewWriter(f)
	for _, a := range archives {
		entry, err := w.Create(fmt.Sprintf("Task%d.zip", a.taskID))
		if err != nil {
			w.Close()
			f.Close()
			return nil, fmt.Errorf("adding %d to bundle: %w", a.taskID, err)
		}
		if _, err := entry.Write(a.data); err != nil {
			w.Close()
			f.Close()
			return nil, fmt.Errorf("writing %d into bundle: %w", a.taskID, err)
		}
	}
	if err := w.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("closing bundle: %w", err)
	}
	f.Close()

	return os.ReadFile(path)
}

// DownloadMaterial fetches a task's assignment material blob, if any.
func (s *Store) DownloadMaterial(ctx context.Context, taskID int) (blob []byte, filename string, err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback()

	var fname sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT material_blob, material_filename FROM tasks WHERE id = $1;`,
		taskID,
	).Scan(&blob, &fname)
	if err == sql.ErrNoRows || (err == nil && blob == nil) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading material: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", err
	}

	return blob, fname.String, nil
}
