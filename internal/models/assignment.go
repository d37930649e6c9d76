package models

import "time"

// Grade is the enumerated mark a teacher assigns to a submission.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Assignment is a piece of work a teacher publishes to their roster.
// TeacherID is immutable after creation; every mutating operation matches
// on it so a non-owning caller cannot tell the record exists.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacherId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	DueDate     time.Time `db:"due_date" json:"dueDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Submission is a student's file upload against an assignment. The
// (assignment_id, student_id) pair is unique at the storage layer, so a
// resubmit always replaces the existing row. IsLate is fixed at write time
// and never recomputed.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignmentId"`
	StudentID    string    `db:"student_id" json:"studentId"`
	FileURL      string    `db:"file_url" json:"fileUrl"`
	FilePublicID string    `db:"file_public_id" json:"-"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submittedAt"`
	IsLate       bool      `db:"is_late" json:"isLate"`
	Grade        *Grade    `db:"grade" json:"grade"`
}
