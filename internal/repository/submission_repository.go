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

// SubmissionRepository manages persistence for submissions. The
// (assignment_id, student_id) unique index makes the submit path a single
// atomic insert-or-update, so concurrent first-time submits cannot produce
// duplicate rows.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// SubmissionWithStudent is a submission row joined with the submitting
// student's identity.
type SubmissionWithStudent struct {
	models.Submission
	StudentName  string `db:"student_name"`
	StudentEmail string `db:"student_email"`
}

// Upsert records a submission. A resubmit replaces file URL, public ID,
// submission time and lateness in place; any grade already assigned is kept.
// The surviving row is written back into the argument.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO submissions (id, assignment_id, student_id, file_url, file_public_id, submitted_at, is_late)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
		SET file_url = EXCLUDED.file_url,
			file_public_id = EXCLUDED.file_public_id,
			submitted_at = EXCLUDED.submitted_at,
			is_late = EXCLUDED.is_late
		RETURNING id, grade`
	row := r.db.QueryRowxContext(ctx, query,
		submission.ID,
		submission.AssignmentID,
		submission.StudentID,
		submission.FileURL,
		submission.FilePublicID,
		submission.SubmittedAt,
		submission.IsLate,
	)
	if err := row.Scan(&submission.ID, &submission.Grade); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// FindByAssignmentAndStudent fetches a student's submission on an assignment.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, file_public_id, submitted_at, is_late, grade
		FROM submissions WHERE assignment_id = $1 AND student_id = $2`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// UpdateFile replaces the stored file reference on an existing submission.
func (r *SubmissionRepository) UpdateFile(ctx context.Context, id, fileURL, filePublicID string) error {
	const query = `UPDATE submissions SET file_url = $2, file_public_id = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fileURL, filePublicID); err != nil {
		return fmt.Errorf("update submission file: %w", err)
	}
	return nil
}

// ListByAssignment returns an assignment's submissions with student identity
// expanded, oldest first.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]SubmissionWithStudent, error) {
	const query = `SELECT s.id, s.assignment_id, s.student_id, s.file_url, s.file_public_id, s.submitted_at, s.is_late, s.grade,
			u.name AS student_name, u.email AS student_email
		FROM submissions s
		JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.submitted_at ASC`
	var submissions []SubmissionWithStudent
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ListByStudent returns all of a student's submissions.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	const query = `SELECT id, assignment_id, student_id, file_url, file_public_id, submitted_at, is_late, grade
		FROM submissions WHERE student_id = $1`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return submissions, nil
}

// SetGrade assigns a grade to one submission, located by its own id across
// all assignments. Returns the containing assignment's id, or sql.ErrNoRows
// when no submission matched.
func (r *SubmissionRepository) SetGrade(ctx context.Context, id string, grade models.Grade) (string, error) {
	const query = `UPDATE submissions SET grade = $2 WHERE id = $1 RETURNING assignment_id`
	var assignmentID string
	if err := r.db.GetContext(ctx, &assignmentID, query, id, grade); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("grade submission: %w", err)
	}
	return assignmentID, nil
}

// PublicIDsByAssignment lists the media-store identifiers of all files
// attached to an assignment, for best-effort cleanup before a cascade delete.
func (r *SubmissionRepository) PublicIDsByAssignment(ctx context.Context, assignmentID string) ([]string, error) {
	const query = `SELECT file_public_id FROM submissions WHERE assignment_id = $1 AND file_public_id <> ''`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submission files: %w", err)
	}
	return ids, nil
}

// PublicIDsByTeacher lists the media-store identifiers of all files attached
// to any of a teacher's assignments.
func (r *SubmissionRepository) PublicIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	const query = `SELECT s.file_public_id
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE a.teacher_id = $1 AND s.file_public_id <> ''`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher submission files: %w", err)
	}
	return ids, nil
}
