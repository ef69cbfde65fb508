package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/repository"
	"github.com/noah-isme/academic-panel/pkg/mailer"
)

type mockActivityRepo struct {
	mu      sync.Mutex
	entries []*models.ActivityLog
	err     error
}

func (m *mockActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ActivityLog, 0, len(m.entries))
	for _, e := range m.entries {
		if filter.Action == "" || e.Action == filter.Action {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (m *mockActivityRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type mockStudentRepo struct {
	students map[string]*models.Student
	created  []*models.Student
}

func newMockStudentRepo(students ...*models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	return repo
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentSummary, int, error) {
	out := make([]models.StudentSummary, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, models.StudentSummary{Student: *s})
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *mockStudentRepo) ExistsByNationalID(ctx context.Context, nationalID, excludeID string) (bool, error) {
	for id, s := range m.students {
		if s.NationalID == nationalID && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = "new-student"
	m.students[student.ID] = student
	m.created = append(m.created, student)
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *student
	m.students[student.ID] = &copied
	return nil
}

// mockEnrollmentRepo keeps enrollments in memory and serialises approvals like the row lock does.
type mockEnrollmentRepo struct {
	mu         sync.Mutex
	rows       map[string][]*models.EnrollmentRow
	counter    int
	created    []*models.Enrollment
	approveErr error
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{rows: map[string][]*models.EnrollmentRow{}}
}

func (m *mockEnrollmentRepo) add(row models.EnrollmentRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row.Position = len(m.rows[row.StudentID])
	if row.Status == "" {
		row.Status = models.EnrollmentStatusPending
	}
	if row.CallStatus == "" {
		row.CallStatus = models.CallStatusPending
	}
	m.rows[row.StudentID] = append(m.rows[row.StudentID], &row)
}

func (m *mockEnrollmentRepo) find(studentID string, position int) *models.EnrollmentRow {
	list := m.rows[studentID]
	if position < 0 || position >= len(list) {
		return nil
	}
	return list[position]
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, int, error) {
	rows, _ := m.ListAll(ctx, filter)
	return rows, len(rows), nil
}

func (m *mockEnrollmentRepo) ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentRow
	for _, list := range m.rows {
		for _, row := range list {
			if filter.Status != "" && row.Status != filter.Status {
				continue
			}
			if filter.CourseName != "" && row.CourseName != filter.CourseName {
				continue
			}
			out = append(out, *row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Enrollment
	for _, row := range m.rows[studentID] {
		out = append(out, row.Enrollment)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) FindRow(ctx context.Context, studentID string, position int) (*models.EnrollmentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(studentID, position)
	if row == nil {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.mu.Lock()
	enrollment.Position = len(m.rows[enrollment.StudentID])
	enrollment.Status = models.EnrollmentStatusPending
	m.created = append(m.created, enrollment)
	m.mu.Unlock()
	m.add(models.EnrollmentRow{Enrollment: *enrollment})
	return nil
}

func (m *mockEnrollmentRepo) Approve(ctx context.Context, studentID string, position int, approvedBy *string, at time.Time) (*models.EnrollmentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	row := m.find(studentID, position)
	if row == nil {
		return nil, sql.ErrNoRows
	}
	if row.Status != models.EnrollmentStatusPending {
		return nil, repository.ErrAlreadyMatriculated
	}
	m.counter++
	number := models.FormatEnrollmentNumber(at.Year(), m.counter)
	row.Status = models.EnrollmentStatusMatriculated
	row.EnrollmentNumber = &number
	row.ApprovedAt = &at
	row.ApprovedBy = approvedBy
	copied := *row
	return &copied, nil
}

func (m *mockEnrollmentRepo) UpdateCallStatus(ctx context.Context, studentID string, position int, status models.CallStatus, agentID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(studentID, position)
	if row == nil {
		return sql.ErrNoRows
	}
	row.CallStatus = status
	row.AgentID = agentID
	return nil
}

func (m *mockEnrollmentRepo) ListRecipients(ctx context.Context, courseName string, status models.EnrollmentStatus) ([]repository.Recipient, error) {
	rows, _ := m.ListAll(ctx, models.EnrollmentFilter{CourseName: courseName, Status: status})
	out := make([]repository.Recipient, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.Recipient{StudentID: row.StudentID, FullName: row.StudentName, Email: row.StudentEmail})
	}
	return out, nil
}

func (m *mockEnrollmentRepo) CourseNames(ctx context.Context) ([]string, error) {
	return []string{"Excel", "Python"}, nil
}

type mockNotifier struct {
	mu   sync.Mutex
	rows []models.EnrollmentRow
	err  error
}

func (m *mockNotifier) NotifyApproval(ctx context.Context, row models.EnrollmentRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return m.err
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// failingTransport fails for the listed addresses.
type failingTransport struct {
	mu    sync.Mutex
	fail  map[string]bool
	sent  []mailer.Message
	delay time.Duration
}

func (t *failingTransport) Name() string { return "fake" }

func (t *failingTransport) Send(ctx context.Context, msg mailer.Message) error {
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail[msg.To[0].Email] {
		return sql.ErrConnDone
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *failingTransport) messages() []mailer.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]mailer.Message(nil), t.sent...)
}
