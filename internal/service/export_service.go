package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/noah-isme/academic-panel/internal/dto"
	"github.com/noah-isme/academic-panel/internal/models"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/export"
)

// Export formats, also used as metric labels.
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
	ExportFormatLMS  = "lms_csv"
)

type exportRepository interface {
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRow, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type tableRenderer interface {
	Render(data export.Table) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Institution string
	// Archive keeps a copy of every generated file in storage.
	Archive   bool
	ResultTTL time.Duration
}

// ExportService turns enrollment queries into downloadable files.
type ExportService struct {
	repo      exportRepository
	storage   fileStorage
	activity  *ActivityService
	metrics   *MetricsService
	xlsx      tableRenderer
	pdf       tableRenderer
	csv       tableRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. storage may be nil when archiving is disabled.
func NewExportService(repo exportRepository, storage fileStorage, activity *ActivityService, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 7 * 24 * time.Hour
	}
	return &ExportService{
		repo:      repo,
		storage:   storage,
		activity:  activity,
		metrics:   metrics,
		xlsx:      export.NewXLSXExporter(),
		pdf:       export.NewPDFExporter(cfg.Institution),
		csv:       export.NewCSVExporter(),
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

var enrollmentHeaders = []string{
	"Nombre", "Cédula", "Correo", "Teléfono", "Curso", "Horario",
	"Estado", "Matrícula", "Llamada", "Agente", "Fecha de inscripción",
}

// XLSX exports one spreadsheet row per enrollment.
func (s *ExportService) XLSX(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error) {
	rows, err := s.load(ctx, filter, "")
	if err != nil {
		return nil, err
	}
	table := enrollmentTable("Matrículas", rows)
	return s.produce(ctx, ExportFormatXLSX, table, s.xlsx, s.filename("matriculas", "xlsx"), export.ContentTypeXLSX, actorID)
}

// PDF exports the same rows as a printable report.
func (s *ExportService) PDF(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error) {
	rows, err := s.load(ctx, filter, "")
	if err != nil {
		return nil, err
	}
	table := enrollmentTable("Reporte de matrículas", rows)
	return s.produce(ctx, ExportFormatPDF, table, s.pdf, s.filename("matriculas", "pdf"), export.ContentTypePDF, actorID)
}

// LMSCSV exports a user-upload file with one row per student holding at least one matriculated enrollment.
func (s *ExportService) LMSCSV(ctx context.Context, filter dto.ExportFilter, actorID string) (*dto.ExportFile, error) {
	rows, err := s.load(ctx, filter, models.EnrollmentStatusMatriculated)
	if err != nil {
		return nil, err
	}
	table := lmsTable(rows)
	return s.produce(ctx, ExportFormatLMS, table, s.csv, s.filename("lms_usuarios", "csv"), export.ContentTypeCSV, actorID)
}

// Cleanup removes archived exports older than ttl (ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) load(ctx context.Context, filter dto.ExportFilter, forced models.EnrollmentStatus) ([]models.EnrollmentRow, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export filter")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "'to' must not be before 'from'")
	}
	query := models.EnrollmentFilter{
		Status:     models.EnrollmentStatus(filter.Status),
		CourseName: strings.TrimSpace(filter.CourseName),
		From:       filter.From,
		To:         nextDay(filter.To),
	}
	if forced != "" {
		query.Status = forced
	}
	rows, err := s.repo.ListAll(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return rows, nil
}

func (s *ExportService) produce(ctx context.Context, format string, table export.Table, renderer tableRenderer, filename, contentType, actorID string) (*dto.ExportFile, error) {
	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	if s.cfg.Archive && s.storage != nil {
		if _, err := s.storage.Save(filename, payload); err != nil {
			s.logger.Warn("archive export failed", zap.String("file", filename), zap.Error(err))
		}
	}
	s.metrics.RecordExport(format)
	s.activity.Record(ctx, models.ActivityReportExported, fmt.Sprintf("%s: %d filas", filename, len(table.Rows)), actorID)
	return &dto.ExportFile{Filename: filename, ContentType: contentType, Content: payload, Rows: len(table.Rows)}, nil
}

func (s *ExportService) filename(base, ext string) string {
	return fmt.Sprintf("%s_%s.%s", base, s.now().Format("20060102_150405"), ext)
}

// nextDay turns an inclusive date-only upper bound into the exclusive bound the repository expects.
func nextDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.AddDate(0, 0, 1)
	return &end
}

func enrollmentTable(title string, rows []models.EnrollmentRow) export.Table {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			row.StudentName,
			row.NationalID,
			row.StudentEmail,
			row.StudentPhone,
			row.CourseName,
			row.Schedule,
			string(row.Status),
			deref(row.EnrollmentNumber),
			string(row.CallStatus),
			deref(row.AgentName),
			row.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return export.Table{Title: title, Headers: enrollmentHeaders, Rows: data}
}

type lmsUser struct {
	nationalID string
	name       string
	email      string
	courses    []string
}

// lmsTable groups matriculated rows per student, keeping the order students first appear in.
func lmsTable(rows []models.EnrollmentRow) export.Table {
	users := make([]*lmsUser, 0)
	byStudent := make(map[string]*lmsUser)
	maxCourses := 1
	for _, row := range rows {
		if !row.Matriculated() {
			continue
		}
		user, ok := byStudent[row.StudentID]
		if !ok {
			user = &lmsUser{nationalID: row.NationalID, name: row.StudentName, email: row.StudentEmail}
			if user.nationalID == "" {
				user.nationalID = row.StudentID
			}
			byStudent[row.StudentID] = user
			users = append(users, user)
		}
		if !containsString(user.courses, row.CourseName) {
			user.courses = append(user.courses, row.CourseName)
		}
		if len(user.courses) > maxCourses {
			maxCourses = len(user.courses)
		}
	}

	headers := []string{"username", "firstname", "lastname", "email", "idnumber"}
	for i := 1; i <= maxCourses; i++ {
		headers = append(headers, "course"+strconv.Itoa(i))
	}
	title := cases.Title(language.Spanish)
	data := make([][]string, 0, len(users))
	for _, user := range users {
		first, last := splitName(title.String(strings.TrimSpace(user.name)))
		record := []string{lmsUsername(user.nationalID), first, last, strings.ToLower(strings.TrimSpace(user.email)), user.nationalID}
		for i := 0; i < maxCourses; i++ {
			course := ""
			if i < len(user.courses) {
				course = user.courses[i]
			}
			record = append(record, course)
		}
		data = append(data, record)
	}
	return export.Table{Title: "lms", Headers: headers, Rows: data}
}

// lmsUsername lowercases and accent-folds the national ID and strips anything the LMS rejects.
func lmsUsername(nationalID string) string {
	folded := strings.ToLower(foldAccents(nationalID))
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// splitName takes the first word as first name; a single-word name gets "-" as last name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "-", "-"
	case 1:
		return parts[0], "-"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
