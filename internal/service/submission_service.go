package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/media"
)

type studentAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByTeacherIDs(ctx context.Context, teacherIDs []string) ([]repository.AssignmentWithTeacher, error)
}

type studentSubmissionRepository interface {
	Upsert(ctx context.Context, submission *models.Submission) error
	FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	UpdateFile(ctx context.Context, id, fileURL, filePublicID string) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]repository.SubmissionWithStudent, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
}

type rosterRepository interface {
	TeacherIDsForStudent(ctx context.Context, studentID string) ([]string, error)
	IsEnrolled(ctx context.Context, studentID, teacherID string) (bool, error)
}

// SubmissionService orchestrates the student-facing submission flow.
type SubmissionService struct {
	assignments studentAssignmentRepository
	submissions studentSubmissionRepository
	roster      rosterRepository
	media       media.Store
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService.
func NewSubmissionService(assignments studentAssignmentRepository, submissions studentSubmissionRepository, roster rosterRepository, store media.Store, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		assignments: assignments,
		submissions: submissions,
		roster:      roster,
		media:       store,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListVisible returns the assignments owned by any teacher the student is
// enrolled with, each carrying the caller's derived submission status.
func (s *SubmissionService) ListVisible(ctx context.Context, studentID string) ([]dto.StudentAssignmentView, error) {
	teacherIDs, err := s.roster.TeacherIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollment")
	}

	assignments, err := s.assignments.ListByTeacherIDs(ctx, teacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	submissions, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	byAssignment := make(map[string]models.Submission, len(submissions))
	for _, submission := range submissions {
		byAssignment[submission.AssignmentID] = submission
	}

	views := make([]dto.StudentAssignmentView, 0, len(assignments))
	for _, assignment := range assignments {
		view := dto.StudentAssignmentView{
			ID:          assignment.ID,
			Title:       assignment.Title,
			Description: assignment.Description,
			DueDate:     assignment.DueDate,
			Teacher: models.UserRef{
				ID:    assignment.TeacherID,
				Name:  assignment.TeacherName,
				Email: assignment.TeacherEmail,
			},
		}
		if submission, ok := byAssignment[assignment.ID]; ok {
			submission := submission
			view.IsSubmitted = true
			view.SubmissionDetails = &submission
			view.Grade = submission.Grade
		}
		views = append(views, view)
	}
	return views, nil
}

// Submit records a file against an assignment: first upload appends, any
// later upload replaces the same row. Lateness is fixed at write time by
// comparing against the due date; there is no due-date gate here, late
// submissions are accepted and flagged.
func (s *SubmissionService) Submit(ctx context.Context, studentID, assignmentID string, file io.Reader, filename string) (*models.Submission, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	enrolled, err := s.roster.IsEnrolled(ctx, studentID, assignment.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not allowed to submit this assignment")
	}

	var previousPublicID string
	if existing, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, studentID); err == nil {
		previousPublicID = existing.FilePublicID
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	upload, err := s.media.Upload(ctx, file, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	submittedAt := s.now()
	submission := &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      upload.URL,
		FilePublicID: upload.PublicID,
		SubmittedAt:  submittedAt,
		IsLate:       submittedAt.After(assignment.DueDate),
	}
	if err := s.submissions.Upsert(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	if previousPublicID != "" && previousPublicID != upload.PublicID {
		if err := s.media.Delete(ctx, previousPublicID); err != nil {
			s.logger.Warn("failed to delete replaced file", zap.String("public_id", previousPublicID), zap.Error(err))
		}
	}

	return submission, nil
}

// Edit is the legacy resubmission path with its own validation: the caller
// must already have a submission and the due date must not have passed. The
// previous file is deleted best-effort before the replacement is recorded.
func (s *SubmissionService) Edit(ctx context.Context, studentID, assignmentID string, file io.Reader, filename string) (*dto.AssignmentView, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if s.now().After(assignment.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot edit this submission, the due date has passed")
	}

	existing, err := s.submissions.FindByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "you have not submitted this assignment yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	if existing.FilePublicID != "" {
		if err := s.media.Delete(ctx, existing.FilePublicID); err != nil {
			s.logger.Warn("failed to delete previous file", zap.String("public_id", existing.FilePublicID), zap.Error(err))
		}
	}

	upload, err := s.media.Upload(ctx, file, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if err := s.submissions.UpdateFile(ctx, existing.ID, upload.URL, upload.PublicID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}

	rows, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return &dto.AssignmentView{
		ID:          assignment.ID,
		Title:       assignment.Title,
		Description: assignment.Description,
		DueDate:     assignment.DueDate,
		TeacherID:   assignment.TeacherID,
		CreatedAt:   assignment.CreatedAt,
		UpdatedAt:   assignment.UpdatedAt,
		Submissions: submissionViews(rows),
	}, nil
}
