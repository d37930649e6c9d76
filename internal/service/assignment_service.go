package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/media"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Assignment, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindOwned(ctx context.Context, id, teacherID string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	DeleteOwned(ctx context.Context, id, teacherID string) error
}

type assignmentSubmissionRepository interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]repository.SubmissionWithStudent, error)
	SetGrade(ctx context.Context, id string, grade models.Grade) (string, error)
	PublicIDsByAssignment(ctx context.Context, assignmentID string) ([]string, error)
}

// CreateAssignmentRequest is the teacher's creation payload.
type CreateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

// UpdateAssignmentRequest allows partial updates; only supplied fields
// change.
type UpdateAssignmentRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// GradeRequest assigns a mark to a submission.
type GradeRequest struct {
	Grade models.Grade `json:"grade" validate:"required,oneof=A B C D F"`
}

// AssignmentService orchestrates the teacher-facing assignment operations.
// Ownership failures are reported as not-found so a non-owning caller cannot
// probe for record existence.
type AssignmentService struct {
	assignments assignmentRepository
	submissions assignmentSubmissionRepository
	media       media.Store
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepository, submissions assignmentSubmissionRepository, store media.Store, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, submissions: submissions, media: store, validator: validate, logger: logger}
}

// Create publishes a new assignment with an empty submission list. The due
// date must be strictly in the future.
func (s *AssignmentService) Create(ctx context.Context, teacherID string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.DueDate.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
	}

	assignment := &models.Assignment{
		TeacherID:   teacherID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate.UTC(),
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// ListMine returns the caller's assignments with each submission's student
// identity expanded.
func (s *AssignmentService) ListMine(ctx context.Context, teacherID string) ([]dto.AssignmentView, error) {
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	views := make([]dto.AssignmentView, 0, len(assignments))
	for _, assignment := range assignments {
		view, err := s.buildView(ctx, &assignment)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Update applies partial changes to an owned assignment. A supplied due date
// must be strictly future.
func (s *AssignmentService) Update(ctx context.Context, teacherID, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.assignments.FindOwned(ctx, id, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		assignment.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != nil {
		if !req.DueDate.After(time.Now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
		}
		assignment.DueDate = req.DueDate.UTC()
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an owned assignment and its embedded submissions. Stored
// files are removed from the media store best-effort before the row goes.
func (s *AssignmentService) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.assignments.FindOwned(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	publicIDs, err := s.submissions.PublicIDsByAssignment(ctx, id)
	if err != nil {
		s.logger.Warn("failed to list submission files before delete", zap.String("assignment_id", id), zap.Error(err))
	}
	for _, publicID := range publicIDs {
		if err := s.media.Delete(ctx, publicID); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("public_id", publicID), zap.Error(err))
		}
	}

	if err := s.assignments.DeleteOwned(ctx, id, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// ListSubmissions returns an owned assignment's submissions with student
// identity expanded.
func (s *AssignmentService) ListSubmissions(ctx context.Context, teacherID, assignmentID string) ([]dto.SubmissionView, error) {
	if _, err := s.assignments.FindOwned(ctx, assignmentID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	rows, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissionViews(rows), nil
}

// Grade sets a submission's mark, locating the submission by its own id
// across assignments, and returns the containing assignment.
func (s *AssignmentService) Grade(ctx context.Context, submissionID string, req GradeRequest) (*dto.AssignmentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	assignmentID, err := s.submissions.SetGrade(ctx, submissionID, req.Grade)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}

	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return s.buildView(ctx, assignment)
}

func (s *AssignmentService) buildView(ctx context.Context, assignment *models.Assignment) (*dto.AssignmentView, error) {
	rows, err := s.submissions.ListByAssignment(ctx, assignment.ID)
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

func submissionViews(rows []repository.SubmissionWithStudent) []dto.SubmissionView {
	views := make([]dto.SubmissionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, dto.SubmissionView{
			ID: row.ID,
			Student: models.UserRef{
				ID:    row.StudentID,
				Name:  row.StudentName,
				Email: row.StudentEmail,
			},
			FileURL:     row.FileURL,
			SubmittedAt: row.SubmittedAt,
			IsLate:      row.IsLate,
			Grade:       row.Grade,
		})
	}
	return views
}
