package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"autograder/internal/domain"
)

// GetAssignmentInfo loads an assignment with its ordered tasks.
func (s *Store) GetAssignmentInfo(ctx context.Context, assignmentID int) (*domain.Assignment, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var a domain.Assignment
	var desc sql.NullString
	a.AssignmentID = assignmentID
	err = tx.QueryRowContext(ctx,
		`SELECT assignment_name, assignment_description, deadline FROM assignments WHERE id = $1;`,
		assignmentID,
	).Scan(&a.Name, &desc, &a.Deadline)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading assignment: %w", err)
	}
	a.Description = desc.String

	rows, err := tx.QueryContext(ctx,
		`SELECT id, task_description, allow_editor, placement FROM tasks WHERE assignment_id = $1 ORDER BY placement ASC;`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Task
		var taskDesc sql.NullString
		if err := rows.Scan(&t.TaskID, &taskDesc, &t.AllowEditor, &t.Placement); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Description = taskDesc.String
		a.Tasks = append(a.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &a, nil
}

// GetTaskTests implements sandbox.TaskProvider.
func (s *Store) GetTaskTests(ctx context.Context, taskID int) ([]domain.Test, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, test_name, input, output, public, timeout FROM tests WHERE task_id = $1 ORDER BY id ASC;`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading tests: %w", err)
	}
	defer rows.Close()

	var tests []domain.Test
	for rows.Next() {
		var t domain.Test
		var name sql.NullString
		var timeoutSecs sql.NullInt64
		if err := rows.Scan(&t.TestID, &name, &t.Input, &t.Output, &t.Public, &timeoutSecs); err != nil {
			return nil, fmt.Errorf("scanning test: %w", err)
		}
		t.Name = name.String
		if timeoutSecs.Valid {
			d := time.Duration(timeoutSecs.Int64) * time.Second
			t.Timeout = &d
		}
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return tests, nil
}

// AddAssignment creates an assignment and links it to a class in one
// transaction.
func (s *Store) AddAssignment(ctx context.Context, classNumber, name, description string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var assignmentID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO assignments (assignment_name, assignment_description, deadline) VALUES ($1, $2, $3) RETURNING id;`,
		name, description, time.Now(),
	).Scan(&assignmentID)
	if err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignment_class (assignment_id, class_number) VALUES ($1, $2);`,
		assignmentID, classNumber,
	); err != nil {
		return fmt.Errorf("linking assignment to class: %w", err)
	}

	return tx.Commit()
}

// UpdateAssignment rewrites an assignment's name, description, and
// deadline in place.
func (s *Store) UpdateAssignment(ctx context.Context, assignmentID int, name, description string, deadline time.Time) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE assignments SET assignment_name = $1, assignment_description = $2, deadline = $3 WHERE id = $4;`,
		name, description, deadline, assignmentID,
	)
	if err != nil {
		return fmt.Errorf("updating assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// GetAssignmentsForClass lists assignments visible to a class, each
// annotated with the caller's own assignment score.
func (s *Store) GetAssignmentsForClass(ctx context.Context, classNumber string, userID int) ([]domain.AssignmentInfo, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT a.id, a.assignment_name, a.assignment_description, a.deadline
		FROM assignments a
		JOIN assignment_class c ON c.assignment_id = a.id
		WHERE c.class_number = $1
		ORDER BY a.id ASC;`,
		classNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	type row struct {
		id       int
		name     string
		desc     sql.NullString
		deadline time.Time
	}
	var loaded []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.desc, &r.deadline); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		loaded = append(loaded, r)
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

	infos := make([]domain.AssignmentInfo, 0, len(loaded))
	for _, r := range loaded {
		grade, err := s.GetAssignmentScore(ctx, userID, r.id)
		if err != nil {
			return nil, err
		}
		score := 0.0
		if grade != nil {
			score = grade.Score
		}
		infos = append(infos, domain.AssignmentInfo{
			AssignmentID:   r.id,
			AssignmentName: r.name,
			Description:    r.desc.String,
			Deadline:       r.deadline.Format(time.RFC3339),
			Score:          score,
		})
	}

	return infos, nil
}

// GetAssignmentScore computes one student's aggregate score for an
// assignment: the late-weighted mean across its tasks, weighted by each
// task's test count.
func (s *Store) GetAssignmentScore(ctx context.Context, userID, assignmentID int) (*domain.AssignmentGrade, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var firstName, lastName, username string
	err = tx.QueryRowContext(ctx,
		`SELECT first_name, last_name, user_name
		FROM users
		JOIN user_class c ON c.user_id = users.id
		JOIN assignment_class ac ON ac.class_number = c.class_number
		WHERE ac.assignment_id = $1 AND c.is_instructor = FALSE AND users.id = $2;`,
		assignmentID, userID,
	).Scan(&firstName, &lastName, &username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading student: %w", err)
	}

	grade, err := s.aggregateAssignmentScore(ctx, tx, assignmentID, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.AssignmentGrade{
		Name:     firstName + " " + lastName,
		Username: username,
		Score:    grade,
	}, nil
}

// GetAssignmentScores computes every enrolled non-instructor student's
// aggregate score for an assignment.
func (s *Store) GetAssignmentScores(ctx context.Context, assignmentID int) ([]domain.AssignmentGrade, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT users.id, first_name, last_name, user_name
		FROM users
		JOIN user_class c ON c.user_id = users.id
		JOIN assignment_class ac ON ac.class_number = c.class_number
		WHERE ac.assignment_id = $1 AND c.is_instructor = FALSE;`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading students: %w", err)
	}

	type student struct {
		id                       int
		firstName, lastName, uname string
	}
	var students []student
	for rows.Next() {
		var st student
		if err := rows.Scan(&st.id, &st.firstName, &st.lastName, &st.uname); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning student: %w", err)
		}
		students = append(students, st)
	}
	closeErr := rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	grades := make([]domain.AssignmentGrade, 0, len(students))
	for _, st := range students {
		score, err := s.aggregateAssignmentScore(ctx, tx, assignmentID, st.id)
		if err != nil {
			return nil, err
		}
		grades = append(grades, domain.AssignmentGrade{
			Name:     st.firstName + " " + st.lastName,
			Username: st.uname,
			Score:    score,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return grades, nil
}

const lateMultiplier = 0.5

// aggregateAssignmentScore computes the sum of (grade * lateMultiplier-if-late)
// weighted by each task's test count, divided by the total test count across
// tasks. A task with no recorded grade contributes 0.
func (s *Store) aggregateAssignmentScore(ctx context.Context, tx *sql.Tx, assignmentID, userID int) (float64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT task_id, COUNT(tests.id) n_tests
		FROM tests
		JOIN tasks ON tasks.id = tests.task_id AND tasks.assignment_id = $1
		GROUP BY task_id;`,
		assignmentID,
	)
	if err != nil {
		return 0, fmt.Errorf("loading task test counts: %w", err)
	}

	type taskCount struct {
		taskID int
		nTests int64
	}
	var tasks []taskCount
	for rows.Next() {
		var tc taskCount
		if err := rows.Scan(&tc.taskID, &tc.nTests); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning task test count: %w", err)
		}
		tasks = append(tasks, tc)
	}
	closeErr := rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if closeErr != nil {
		return 0, closeErr
	}

	var sumTests int64
	var sumGrade float64
	for _, tc := range tasks {
		var grade sql.NullFloat64
		var wasLate bool
		err := tx.QueryRowContext(ctx,
			`SELECT grade, was_late FROM user_task_grade WHERE user_id = $1 AND task_id = $2;`,
			userID, tc.taskID,
		).Scan(&grade, &wasLate)
		switch {
		case err == sql.ErrNoRows:
			wasLate = false
		case err != nil:
			return 0, fmt.Errorf("loading task grade: %w", err)
		}

		sumTests += tc.nTests
		weight := 1.0
		if wasLate {
			weight = lateMultiplier
		}
		sumGrade += grade.Float64 * weight * float64(tc.nTests)
	}

	if sumTests == 0 {
		return 0, nil
	}
	return sumGrade / float64(sumTests), nil
}
