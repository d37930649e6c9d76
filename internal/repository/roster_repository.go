package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// RosterRepository manages the teacher/student enrollment relation. Rows are
// written by the admin provisioning flow and drive assignment visibility for
// students.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs a RosterRepository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Assign links the given students to a teacher. Existing links are left
// untouched.
func (r *RosterRepository) Assign(ctx context.Context, teacherID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("assign students: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO teacher_students (teacher_id, student_id)
		VALUES ($1, $2) ON CONFLICT (teacher_id, student_id) DO NOTHING`
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, query, teacherID, studentID); err != nil {
			return fmt.Errorf("assign student %s: %w", studentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("assign students: %w", err)
	}
	return nil
}

// StudentsForTeacher returns the expanded roster of a teacher.
func (r *RosterRepository) StudentsForTeacher(ctx context.Context, teacherID string) ([]models.UserRef, error) {
	const query = `SELECT u.id, u.name, u.email
		FROM teacher_students ts
		JOIN users u ON u.id = ts.student_id
		WHERE ts.teacher_id = $1
		ORDER BY u.name ASC`
	var students []models.UserRef
	if err := r.db.SelectContext(ctx, &students, query, teacherID); err != nil {
		return nil, fmt.Errorf("list roster students: %w", err)
	}
	return students, nil
}

// TeacherIDsForStudent returns the ids of all teachers the student is
// enrolled with.
func (r *RosterRepository) TeacherIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT teacher_id FROM teacher_students WHERE student_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student teachers: %w", err)
	}
	return ids, nil
}

// IsEnrolled reports whether the student belongs to the teacher's roster.
func (r *RosterRepository) IsEnrolled(ctx context.Context, studentID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_students WHERE student_id = $1 AND teacher_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}
