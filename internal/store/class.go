package store

import (
	"context"
	"database/sql"
	"fmt"

	"autograder/internal/domain"
)

// NewClass creates a class and enrolls the named instructor in one
// transaction.
func (s *Store) NewClass(ctx context.Context, classNumber, description, instructorUsername string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO classes (class_number, class_description) VALUES ($1, $2);`,
		classNumber, description,
	); err != nil {
		return fmt.Errorf("creating class: %w", err)
	}

	var instructorID int
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE user_name = $1;`, instructorUsername).Scan(&instructorID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("instructor %q does not exist: %w", instructorUsername, ErrNotFound)
		}
		return fmt.Errorf("looking up instructor: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_class (user_id, class_number, is_instructor) VALUES ($1, $2, TRUE);`,
		instructorID, classNumber,
	); err != nil {
		return fmt.Errorf("enrolling instructor: %w", err)
	}

	return tx.Commit()
}

// AddStudent enrolls an existing user as a non-instructor in a class.
func (s *Store) AddStudent(ctx context.Context, classNumber, studentUsername string) error {
	return s.enroll(ctx, classNumber, studentUsername, false)
}

// AddInstructor enrolls an existing user as an instructor of a class.
func (s *Store) AddInstructor(ctx context.Context, classNumber, instructorUsername string) error {
	return s.enroll(ctx, classNumber, instructorUsername, true)
}

func (s *Store) enroll(ctx context.Context, classNumber, username string, isInstructor bool) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO user_class (user_id, class_number, is_instructor)
		SELECT id, $1, $2 FROM users WHERE user_name = $3;`,
		classNumber, isInstructor, username,
	)
	if err != nil {
		return fmt.Errorf("enrolling %q: %w", username, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %q: %w", username, ErrNotFound)
	}

	return tx.Commit()
}

// GetClasses lists every class a user is enrolled in, in any role.
func (s *Store) GetClasses(ctx context.Context, userID int) ([]domain.ClassItem, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT c.class_number, c.class_description
		FROM classes c
		JOIN user_class u ON u.class_number = c.class_number
		WHERE u.user_id = $1;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	defer rows.Close()

	var items []domain.ClassItem
	for rows.Next() {
		var item domain.ClassItem
		var desc sql.NullString
		if err := rows.Scan(&item.ClassNumber, &desc); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}
		item.Description = desc.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return items, nil
}

// GetInstructors lists the distinct instructors of a class.
func (s *Store) GetInstructors(ctx context.Context, classNumber string) ([]domain.InstructorInfo, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT first_name, last_name, email
		FROM users
		JOIN user_class ON users.id = user_class.user_id
		WHERE user_class.class_number = $1 AND user_class.is_instructor = TRUE;`,
		classNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("loading instructors: %w", err)
	}
	defer rows.Close()

	var instructors []domain.InstructorInfo
	for rows.Next() {
		var info domain.InstructorInfo
		if err := rows.Scan(&info.FirstName, &info.LastName, &info.Email); err != nil {
			return nil, fmt.Errorf("scanning instructor: %w", err)
		}
		instructors = append(instructors, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return instructors, nil
}

// ListAllStudents lists every user, optionally excluding those already
// enrolled in a given class (for roster-add UIs).
func (s *Store) ListAllStudents(ctx context.Context, excludeFromClass string) ([]domain.UserInfo, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rows *sql.Rows
	if excludeFromClass != "" {
		rows, err = tx.QueryContext(ctx,
			`SELECT DISTINCT first_name, last_name, user_name
			FROM users
			LEFT JOIN user_class ON users.id = user_class.user_id AND user_class.class_number = $1
			WHERE user_class.user_id IS NULL;`,
			excludeFromClass,
		)
	} else {
		rows, err = tx.QueryContext(ctx, `SELECT first_name, last_name, user_name FROM users;`)
	}
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserInfo
	for rows.Next() {
		var u domain.UserInfo
		if err := rows.Scan(&u.FirstName, &u.LastName, &u.Username); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return users, nil
}

// AddJoinCode upserts a class join code with a one-hour expiration.
func (s *Store) AddJoinCode(ctx context.Context, joinCode, classNumber string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO class_join_code (join_code, class_number, expiration)
		VALUES ($1, $2, NOW() + INTERVAL '1 hour')
		ON CONFLICT (class_number) DO UPDATE SET
			join_code = EXCLUDED.join_code,
			expiration = EXCLUDED.expiration;`,
		joinCode, classNumber,
	); err != nil {
		return fmt.Errorf("upserting join code: %w", err)
	}

	return tx.Commit()
}

// JoinClass redeems an unexpired join code, enrolling the user as a
// non-instructor. Returns ("", false, nil) if the code is missing or
// expired.
func (s *Store) JoinClass(ctx context.Context, userID int, joinCode string) (classNumber string, ok bool, err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`SELECT class_number FROM class_join_code WHERE join_code = $1 AND expiration > NOW();`,
		joinCode,
	).Scan(&classNumber)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up join code: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_class (user_id, class_number, is_instructor) VALUES ($1, $2, FALSE);`,
		userID, classNumber,
	); err != nil {
		return "", false, fmt.Errorf("enrolling student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, err
	}

	return classNumber, true, nil
}
