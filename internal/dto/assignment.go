package dto

import (
	"time"

	"github.com/noah-isme/assignment-portal-api/internal/models"
)

// SubmissionView is a submission with the student's identity expanded.
type SubmissionView struct {
	ID          string         `json:"id"`
	Student     models.UserRef `json:"student"`
	FileURL     string         `json:"fileUrl"`
	SubmittedAt time.Time      `json:"submittedAt"`
	IsLate      bool           `json:"isLate"`
	Grade       *models.Grade  `json:"grade"`
}

// AssignmentView is the teacher-facing assignment payload with its embedded
// submission list.
type AssignmentView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DueDate     time.Time        `json:"dueDate"`
	TeacherID   string           `json:"teacherId"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Submissions []SubmissionView `json:"submissions"`
}

// StudentAssignmentView is the student-facing assignment payload: teacher
// identity expanded plus the caller's own submission status derived at read
// time.
type StudentAssignmentView struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	DueDate           time.Time          `json:"dueDate"`
	Teacher           models.UserRef     `json:"teacher"`
	IsSubmitted       bool               `json:"isSubmitted"`
	SubmissionDetails *models.Submission `json:"submissionDetails"`
	Grade             *models.Grade      `json:"grade"`
}
