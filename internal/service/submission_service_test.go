package service

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	appErrors "github.com/noah-isme/assignment-portal-api/pkg/errors"
	"github.com/noah-isme/assignment-portal-api/pkg/media"
)

type stubMediaStore struct {
	uploads int
	deleted []string
}

func (s *stubMediaStore) Upload(ctx context.Context, r io.Reader, filename string) (*media.Upload, error) {
	s.uploads++
	return &media.Upload{URL: "https://cdn/" + filename, PublicID: "pub-" + filename}, nil
}

func (s *stubMediaStore) Delete(ctx context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return nil
}

type mockStudentAssignments struct {
	items  map[string]*models.Assignment
	joined []repository.AssignmentWithTeacher
}

func (m *mockStudentAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if assignment, ok := m.items[id]; ok {
		cp := *assignment
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentAssignments) ListByTeacherIDs(ctx context.Context, teacherIDs []string) ([]repository.AssignmentWithTeacher, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	return m.joined, nil
}

type mockStudentSubmissions struct {
	items map[string]*models.Submission // keyed assignmentID + "/" + studentID
	rows  []repository.SubmissionWithStudent
}

func (m *mockStudentSubmissions) key(assignmentID, studentID string) string {
	return assignmentID + "/" + studentID
}

func (m *mockStudentSubmissions) Upsert(ctx context.Context, submission *models.Submission) error {
	if m.items == nil {
		m.items = make(map[string]*models.Submission)
	}
	key := m.key(submission.AssignmentID, submission.StudentID)
	if existing, ok := m.items[key]; ok {
		submission.ID = existing.ID
		submission.Grade = existing.Grade
	} else if submission.ID == "" {
		submission.ID = "generated"
	}
	cp := *submission
	m.items[key] = &cp
	return nil
}

func (m *mockStudentSubmissions) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	if submission, ok := m.items[m.key(assignmentID, studentID)]; ok {
		cp := *submission
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentSubmissions) UpdateFile(ctx context.Context, id, fileURL, filePublicID string) error {
	for _, submission := range m.items {
		if submission.ID == id {
			submission.FileURL = fileURL
			submission.FilePublicID = filePublicID
		}
	}
	return nil
}

func (m *mockStudentSubmissions) ListByAssignment(ctx context.Context, assignmentID string) ([]repository.SubmissionWithStudent, error) {
	return m.rows, nil
}

func (m *mockStudentSubmissions) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, submission := range m.items {
		if submission.StudentID == studentID {
			out = append(out, *submission)
		}
	}
	return out, nil
}

type mockRoster struct {
	teachers map[string][]string // studentID -> teacherIDs
}

func (m *mockRoster) TeacherIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	return m.teachers[studentID], nil
}

func (m *mockRoster) IsEnrolled(ctx context.Context, studentID, teacherID string) (bool, error) {
	for _, id := range m.teachers[studentID] {
		if id == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func newSubmissionService(assignments *mockStudentAssignments, submissions *mockStudentSubmissions, roster *mockRoster, store *stubMediaStore) *SubmissionService {
	return NewSubmissionService(assignments, submissions, roster, store, zap.NewNop())
}

func TestSubmissionServiceSubmitUnknownAssignment(t *testing.T) {
	svc := newSubmissionService(&mockStudentAssignments{}, &mockStudentSubmissions{}, &mockRoster{}, &stubMediaStore{})

	_, err := svc.Submit(context.Background(), "s1", "missing", strings.NewReader("x"), "hw.pdf")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestSubmissionServiceSubmitNotEnrolled(t *testing.T) {
	assignments := &mockStudentAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", DueDate: time.Now().Add(time.Hour)},
	}}
	store := &stubMediaStore{}
	svc := newSubmissionService(assignments, &mockStudentSubmissions{}, &mockRoster{}, store)

	_, err := svc.Submit(context.Background(), "s1", "a1", strings.NewReader("x"), "hw.pdf")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
	assert.Zero(t, store.uploads)
}

func TestSubmissionServiceSubmitLateFlagFixedAtWrite(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assignments := &mockStudentAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", DueDate: due},
	}}
	roster := &mockRoster{teachers: map[string][]string{"s1": {"t1"}}}
	svc := newSubmissionService(assignments, &mockStudentSubmissions{}, roster, &stubMediaStore{})

	svc.now = func() time.Time { return due.Add(-time.Minute) }
	submission, err := svc.Submit(context.Background(), "s1", "a1", strings.NewReader("x"), "hw.pdf")
	require.NoError(t, err)
	assert.False(t, submission.IsLate)

	// Late submits are accepted and flagged, not rejected.
	svc.now = func() time.Time { return due.Add(time.Minute) }
	submission, err = svc.Submit(context.Background(), "s1", "a1", strings.NewReader("x"), "hw2.pdf")
	require.NoError(t, err)
	assert.True(t, submission.IsLate)
}

func TestSubmissionServiceResubmitReplacesInPlace(t *testing.T) {
	assignments := &mockStudentAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", DueDate: time.Now().Add(time.Hour)},
	}}
	submissions := &mockStudentSubmissions{}
	roster := &mockRoster{teachers: map[string][]string{"s1": {"t1"}}}
	store := &stubMediaStore{}
	svc := newSubmissionService(assignments, submissions, roster, store)

	first, err := svc.Submit(context.Background(), "s1", "a1", strings.NewReader("x"), "v1.pdf")
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), "s1", "a1", strings.NewReader("x"), "v2.pdf")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, submissions.items, 1)
	assert.Equal(t, "https://cdn/v2.pdf", second.FileURL)
	assert.Equal(t, []string{"pub-v1.pdf"}, store.deleted)
}

func TestSubmissionServiceEditAfterDueDate(t *testing.T) {
	assignments := &mockStudentAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", DueDate: time.Now().Add(-time.Hour)},
	}}
	svc := newSubmissionService(assignments, &mockStudentSubmissions{}, &mockRoster{}, &stubMediaStore{})

	_, err := svc.Edit(context.Background(), "s1", "a1", strings.NewReader("x"), "hw.pdf")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestSubmissionServiceEditWithoutPriorSubmission(t *testing.T) {
	assignments := &mockStudentAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", TeacherID: "t1", DueDate: time.Now().Add(time.Hour)},
	}}
	svc := newSubmissionService(assignments, &mockStudentSubmissions{}, &mockRoster{}, &stubMediaStore{})

	_, err := svc.Edit(context.Background(), "s1", "a1", strings.NewReader("x"), "hw.pdf")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestSubmissionServiceListVisible(t *testing.T) {
	grade := models.GradeA
	assignments := &mockStudentAssignments{joined: []repository.AssignmentWithTeacher{
		{
			Assignment:   models.Assignment{ID: "a1", TeacherID: "t1", Title: "HW1", DueDate: time.Now().Add(time.Hour)},
			TeacherName:  "Teacher A",
			TeacherEmail: "t@example.com",
		},
		{
			Assignment:  models.Assignment{ID: "a2", TeacherID: "t1", Title: "HW2", DueDate: time.Now().Add(time.Hour)},
			TeacherName: "Teacher A",
		},
	}}
	submissions := &mockStudentSubmissions{items: map[string]*models.Submission{
		"a1/s1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1", FileURL: "https://cdn/f.pdf", Grade: &grade},
	}}
	roster := &mockRoster{teachers: map[string][]string{"s1": {"t1"}}}
	svc := newSubmissionService(assignments, submissions, roster, &stubMediaStore{})

	views, err := svc.ListVisible(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.True(t, views[0].IsSubmitted)
	require.NotNil(t, views[0].SubmissionDetails)
	assert.Equal(t, "sub1", views[0].SubmissionDetails.ID)
	require.NotNil(t, views[0].Grade)
	assert.Equal(t, models.GradeA, *views[0].Grade)
	assert.Equal(t, "Teacher A", views[0].Teacher.Name)

	assert.False(t, views[1].IsSubmitted)
	assert.Nil(t, views[1].SubmissionDetails)
	assert.Nil(t, views[1].Grade)
}

func TestSubmissionServiceListVisibleNoRoster(t *testing.T) {
	svc := newSubmissionService(&mockStudentAssignments{}, &mockStudentSubmissions{}, &mockRoster{}, &stubMediaStore{})

	views, err := svc.ListVisible(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, views)
}
