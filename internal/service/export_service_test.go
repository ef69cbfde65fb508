package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type memoryStorage struct {
	saved map[string][]byte
	err   error
}

func (m *memoryStorage) Save(name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = data
	return name, nil
}

func (m *memoryStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	removed := make([]string, 0, len(m.saved))
	for name := range m.saved {
		removed = append(removed, name)
	}
	m.saved = nil
	return removed, nil
}

func newExportFixture(cfg ExportConfig, storage *memoryStorage) (*ExportService, *mockActivityRepo) {
	repo := newMockEnrollmentRepo()
	matriculated := models.EnrollmentStatusMatriculated
	repo.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: studentAna, CourseName: "Excel", Status: matriculated, EnrollmentNumber: strPtr("MAT-2026-00001")}, StudentName: "josé ÁLVAREZ peña", NationalID: "Ñ-0912", StudentEmail: "Jose@Example.com"})
	repo.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: studentAna, CourseName: "Java"}, StudentName: "josé ÁLVAREZ peña", NationalID: "Ñ-0912", StudentEmail: "Jose@Example.com"})
	repo.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: studentAna, CourseName: "Python", Status: matriculated}, StudentName: "josé ÁLVAREZ peña", NationalID: "Ñ-0912", StudentEmail: "Jose@Example.com"})
	repo.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: studentLuis, CourseName: "Excel", Status: matriculated}, StudentName: "Luis", NationalID: "0801", StudentEmail: "luis@example.com"})
	repo.add(models.EnrollmentRow{Enrollment: models.Enrollment{StudentID: "s3", CourseName: "Excel"}, StudentName: "Eva Ruiz", NationalID: "0555"})

	activity := &mockActivityRepo{}
	var store fileStorage
	if storage != nil {
		store = storage
	}
	svc := NewExportService(repo, store, NewActivityService(activity, nil), NewMetricsService(), cfg, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC) }
	return svc, activity
}

func strPtr(s string) *string { return &s }

func TestExportLMSCSVGroupsMatriculatedByStudent(t *testing.T) {
	svc, activity := newExportFixture(ExportConfig{}, nil)

	file, err := svc.LMSCSV(context.Background(), dto.ExportFilter{Status: "Inscrito"}, "u1")
	require.NoError(t, err)

	expected := "username,firstname,lastname,email,idnumber,course1,course2\n" +
		"0801,Luis,-,luis@example.com,0801,Excel,\n" +
		"n-0912,José,Álvarez Peña,jose@example.com,Ñ-0912,Excel,Python\n"
	assert.Equal(t, expected, string(file.Content))
	assert.Equal(t, 2, file.Rows)
	assert.Equal(t, "lms_usuarios_20260302_101500.csv", file.Filename)
	assert.Equal(t, []string{models.ActivityReportExported}, activity.actions())
}

func TestExportXLSXWritesEveryEnrollment(t *testing.T) {
	storage := &memoryStorage{}
	svc, _ := newExportFixture(ExportConfig{Archive: true}, storage)

	file, err := svc.XLSX(context.Background(), dto.ExportFilter{CourseName: " Excel "}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, file.Rows)
	assert.Contains(t, storage.saved, file.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	rows, err := book.GetRows(book.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, enrollmentHeaders[0], rows[0][0])
	assert.Equal(t, "Eva Ruiz", rows[1][0])
	assert.Equal(t, "MAT-2026-00001", rows[3][7])

	removed, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
}

func TestExportPDFRendersDocument(t *testing.T) {
	svc, _ := newExportFixture(ExportConfig{Institution: "Instituto Central"}, nil)

	file, err := svc.PDF(context.Background(), dto.ExportFilter{}, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
	assert.Equal(t, 5, file.Rows)
}

func TestExportArchiveFailureDoesNotFailDownload(t *testing.T) {
	svc, _ := newExportFixture(ExportConfig{Archive: true}, &memoryStorage{err: errors.New("disk full")})

	file, err := svc.XLSX(context.Background(), dto.ExportFilter{}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, file.Content)
}

func TestExportRejectsInvalidFilters(t *testing.T) {
	svc, _ := newExportFixture(ExportConfig{}, nil)

	_, err := svc.XLSX(context.Background(), dto.ExportFilter{Status: "Otro"}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err = svc.LMSCSV(context.Background(), dto.ExportFilter{From: &from, To: &to}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLMSUsernameFoldsAccents(t *testing.T) {
	assert.Equal(t, "aeiou-1", lmsUsername("ÁÉÍÓÚ-1"))
	first, last := splitName("")
	assert.Equal(t, "-", first)
	assert.Equal(t, "-", last)
}
