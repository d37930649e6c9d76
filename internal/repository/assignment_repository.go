package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// AssignmentRepository manages persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = "id, teacher_id, title, description, due_date, created_at, updated_at"

// AssignmentWithTeacher is an assignment row joined with its owner's
// identity, used for the student-facing listing.
type AssignmentWithTeacher struct {
	models.Assignment
	TeacherName  string `db:"teacher_name"`
	TeacherEmail string `db:"teacher_email"`
}

// Create inserts a new assignment with an empty submission set.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	const query = `INSERT INTO assignments (id, teacher_id, title, description, due_date, created_at, updated_at)
		VALUES (:id, :teacher_id, :title, :description, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// ListByTeacher returns all assignments owned by the teacher, newest first.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE teacher_id = $1 ORDER BY created_at DESC", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches an assignment regardless of owner.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1", assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindOwned fetches an assignment only when the teacher owns it. A non-owned
// record yields sql.ErrNoRows, indistinguishable from absence.
func (r *AssignmentRepository) FindOwned(ctx context.Context, id, teacherID string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE id = $1 AND teacher_id = $2", assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, teacherID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Update persists title/description/due date changes.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, updated_at = :updated_at
		WHERE id = :id AND teacher_id = :teacher_id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// DeleteOwned removes an assignment owned by the teacher; embedded
// submissions cascade. Returns sql.ErrNoRows when nothing matched.
func (r *AssignmentRepository) DeleteOwned(ctx context.Context, id, teacherID string) error {
	const query = `DELETE FROM assignments WHERE id = $1 AND teacher_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByTeacherIDs returns assignments owned by any of the given teachers,
// with the owner's identity joined in.
func (r *AssignmentRepository) ListByTeacherIDs(ctx context.Context, teacherIDs []string) ([]AssignmentWithTeacher, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT a.id, a.teacher_id, a.title, a.description, a.due_date, a.created_at, a.updated_at,
			u.name AS teacher_name, u.email AS teacher_email
		FROM assignments a
		JOIN users u ON u.id = a.teacher_id
		WHERE a.teacher_id IN (?)
		ORDER BY a.due_date ASC`, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("list visible assignments: %w", err)
	}
	query = r.db.Rebind(query)

	var assignments []AssignmentWithTeacher
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list visible assignments: %w", err)
	}
	return assignments, nil
}
