package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/assignment-portal-api/internal/dto"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/media"
)

type adminUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	ListRefsByRole(ctx context.Context, role models.Role) ([]models.UserRef, error)
	Delete(ctx context.Context, id string, role models.Role) error
}

type adminRosterRepository interface {
	Assign(ctx context.Context, teacherID string, studentIDs []string) error
	StudentsForTeacher(ctx context.Context, teacherID string) ([]models.UserRef, error)
}

type adminSubmissionRepository interface {
	PublicIDsByTeacher(ctx context.Context, teacherID string) ([]string, error)
}

// RegisterTeacherRequest provisions a teacher account. The roster is the
// caller's input; the system does not compute it.
type RegisterTeacherRequest struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=8"`
	Course     string   `json:"course" validate:"required"`
	Timing     string   `json:"timing" validate:"required"`
	StudentIDs []string `json:"studentIds" validate:"dive,required"`
}

// AdminService handles teacher provisioning and removal.
type AdminService struct {
	users       adminUserRepository
	roster      adminRosterRepository
	submissions adminSubmissionRepository
	media       media.Store
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(users adminUserRepository, roster adminRosterRepository, submissions adminSubmissionRepository, store media.Store, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, roster: roster, submissions: submissions, media: store, validator: validate, logger: logger}
}

// RegisterTeacher creates a verified teacher account and links the given
// students to it.
func (s *AdminService) RegisterTeacher(ctx context.Context, req RegisterTeacherRequest) (*dto.TeacherView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	course := strings.TrimSpace(req.Course)
	timing := strings.TrimSpace(req.Timing)
	teacher := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Course:       &course,
		Timing:       &timing,
		Verified:     true,
	}
	if err := s.users.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	if err := s.roster.Assign(ctx, teacher.ID, req.StudentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign students")
	}

	return s.teacherView(ctx, teacher)
}

// ListTeachers returns all teachers with their rosters expanded.
func (s *AdminService) ListTeachers(ctx context.Context) ([]dto.TeacherView, error) {
	teachers, err := s.users.ListByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	views := make([]dto.TeacherView, 0, len(teachers))
	for _, teacher := range teachers {
		teacher := teacher
		view, err := s.teacherView(ctx, &teacher)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// ListStudents returns every student as an id/name/email reference, for
// roster selection when provisioning a teacher.
func (s *AdminService) ListStudents(ctx context.Context) ([]models.UserRef, error) {
	students, err := s.users.ListRefsByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.UserRef{}
	}
	return students, nil
}

// DeleteTeacher removes a teacher account. Owned assignments, their
// submissions and roster rows cascade with the row; stored submission files
// are deleted from the media store best-effort first.
func (s *AdminService) DeleteTeacher(ctx context.Context, id string) error {
	publicIDs, err := s.submissions.PublicIDsByTeacher(ctx, id)
	if err != nil {
		s.logger.Warn("failed to list teacher files before delete", zap.String("teacher_id", id), zap.Error(err))
	}
	for _, publicID := range publicIDs {
		if err := s.media.Delete(ctx, publicID); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("public_id", publicID), zap.Error(err))
		}
	}

	if err := s.users.Delete(ctx, id, models.RoleTeacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

func (s *AdminService) teacherView(ctx context.Context, teacher *models.User) (*dto.TeacherView, error) {
	students, err := s.roster.StudentsForTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if students == nil {
		students = []models.UserRef{}
	}
	return &dto.TeacherView{
		ID:               teacher.ID,
		Name:             teacher.Name,
		Email:            teacher.Email,
		Course:           teacher.Course,
		Timing:           teacher.Timing,
		CreatedAt:        teacher.CreatedAt,
		AssignedStudents: students,
	}, nil
}
