package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/export"
)

//go:embed templates
var templateFS embed.FS

// ErrUnknownTab is returned for a fragment name the panel does not serve.
var ErrUnknownTab = errors.New("unknown panel tab")

// Panel tabs.
const (
	TabPending      = "pending"
	TabMatriculated = "matriculated"
	TabCourses      = "courses"
	TabPayments     = "payments"
	TabActivity     = "activity"
	TabEmail        = "email"
)

// Tab is one entry of the panel navigation.
type Tab struct {
	Key   string
	Label string
}

// Tabs lists the panel navigation in display order.
func Tabs() []Tab {
	return []Tab{
		{Key: TabPending, Label: "Inscritos"},
		{Key: TabMatriculated, Label: "Matriculados"},
		{Key: TabCourses, Label: "Cursos"},
		{Key: TabPayments, Label: "Pagos"},
		{Key: TabActivity, Label: "Actividad"},
		{Key: TabEmail, Label: "Correo masivo"},
	}
}

// IsTab reports whether key names a panel tab.
func IsTab(key string) bool {
	for _, t := range Tabs() {
		if t.Key == key {
			return true
		}
	}
	return false
}

// Email is a rendered notification ready for a mail transport.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

type emailTemplate struct {
	html *htmltmpl.Template
	text *texttmpl.Template
}

// Renderer renders the panel shell, its fragments and outgoing emails from embedded templates.
type Renderer struct {
	panel       *htmltmpl.Template
	emails      map[string]emailTemplate
	institution string
}

// New parses every embedded template. It fails fast so a broken template never reaches a request.
func New(institution string) (*Renderer, error) {
	panel, err := htmltmpl.New("panel").Funcs(htmlFuncs()).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse panel templates: %w", err)
	}

	emails := make(map[string]emailTemplate)
	for _, name := range []string{"approval", "invoice", "bulk"} {
		html, err := htmltmpl.New("layout.gohtml").Funcs(htmlFuncs()).
			ParseFS(templateFS, "templates/email/layout.gohtml", "templates/email/"+name+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("parse %s email: %w", name, err)
		}
		entry := emailTemplate{html: html}
		if _, err := fs.Stat(templateFS, "templates/email/"+name+".txt"); err == nil {
			text, err := texttmpl.New(name + ".txt").Funcs(textFuncs()).ParseFS(templateFS, "templates/email/"+name+".txt")
			if err != nil {
				return nil, fmt.Errorf("parse %s text email: %w", name, err)
			}
			entry.text = text
		}
		emails[name] = entry
	}

	return &Renderer{panel: panel, emails: emails, institution: institution}, nil
}

// Shell renders the full panel page.
func (r *Renderer) Shell(data ShellData) ([]byte, error) {
	if data.Institution == "" {
		data.Institution = r.institution
	}
	if data.Tabs == nil {
		data.Tabs = Tabs()
	}
	if data.Active == "" {
		data.Active = TabPending
	}
	return r.execute("shell", data)
}

// Login renders the sign-in page.
func (r *Renderer) Login(data LoginData) ([]byte, error) {
	if data.Institution == "" {
		data.Institution = r.institution
	}
	return r.execute("login", data)
}

// Fragment renders the markup of one tab.
func (r *Renderer) Fragment(tab string, data interface{}) ([]byte, error) {
	if !IsTab(tab) {
		return nil, ErrUnknownTab
	}
	return r.execute("tab_"+tab, data)
}

// Row renders one enrollment table row; approval responses reuse it to replace the stale row.
func (r *Renderer) Row(row models.EnrollmentRow, actions RowActions) (string, error) {
	out, err := r.execute("enrollment_row", RowView{EnrollmentRow: row, Actions: actions})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Profile renders the student profile fragment.
func (r *Renderer) Profile(profile *models.StudentProfile) (string, error) {
	if profile == nil {
		return "", errors.New("profile required")
	}
	out, err := r.execute("profile", profile)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ApprovalEmail renders the notification sent to a student once matriculated.
func (r *Renderer) ApprovalEmail(row models.EnrollmentRow) (Email, error) {
	subject := fmt.Sprintf("Matrícula confirmada: %s", row.CourseName)
	return r.email("approval", subject, row)
}

// InvoiceEmail renders the receipt notification carrying the public invoice link.
func (r *Renderer) InvoiceEmail(payment *models.Payment, link string) (Email, error) {
	subject := fmt.Sprintf("Comprobante de pago %s", payment.TransactionID)
	if payment.TransactionID == "" {
		subject = "Comprobante de pago"
	}
	return r.email("invoice", subject, InvoiceEmailData{Payment: payment, Link: link})
}

// BulkEmail wraps an operator-authored body in the institutional layout.
func (r *Renderer) BulkEmail(subject, body string) (Email, error) {
	return r.email("bulk", subject, BulkEmailData{Body: htmltmpl.HTML(body)})
}

func (r *Renderer) email(name, subject string, data interface{}) (Email, error) {
	tmpl, ok := r.emails[name]
	if !ok {
		return Email{}, fmt.Errorf("email template %s not found", name)
	}
	ctx := EmailContext{Institution: r.institution, Subject: subject, Data: data}

	var html bytes.Buffer
	if err := tmpl.html.Execute(&html, ctx); err != nil {
		return Email{}, fmt.Errorf("render %s email: %w", name, err)
	}
	out := Email{Subject: subject, HTML: html.String()}
	if tmpl.text != nil {
		var text bytes.Buffer
		if err := tmpl.text.Execute(&text, ctx); err != nil {
			return Email{}, fmt.Errorf("render %s text email: %w", name, err)
		}
		out.Text = strings.TrimSpace(text.String())
	}
	return out, nil
}

func (r *Renderer) execute(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.panel.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

var callLabels = map[models.CallStatus]string{
	models.CallStatusPending:   "Pendiente",
	models.CallStatusContacted: "Contactado",
	models.CallStatusNoAnswer:  "No contesta",
	models.CallStatusDiscarded: "Descartado",
}

func commonFuncs() map[string]interface{} {
	return map[string]interface{}{
		"date":      func(t time.Time) string { return formatTime(t, "02/01/2006") },
		"datetime":  func(t time.Time) string { return formatTime(t, "02/01/2006 15:04") },
		"deref":     deref,
		"derefTime": derefTime,
		"money": func(amount decimal.Decimal, currency string) string {
			return export.FormatMoney(amount, currency)
		},
	}
}

func htmlFuncs() htmltmpl.FuncMap {
	funcs := htmltmpl.FuncMap(commonFuncs())
	funcs["callStatuses"] = func() []models.CallStatus { return models.CallStatuses }
	funcs["callLabel"] = func(s models.CallStatus) string {
		if label, ok := callLabels[s]; ok {
			return label
		}
		return string(s)
	}
	funcs["statusClass"] = func(s models.EnrollmentStatus) string { return strings.ToLower(string(s)) }
	funcs["actor"] = func(a models.ActivityLog) string { return a.Actor() }
	funcs["exportLinks"] = func() map[string]string {
		return map[string]string{
			"/api/v1/exports/enrollments.xlsx": "Excel",
			"/api/v1/exports/enrollments.pdf":  "PDF",
			"/api/v1/exports/lms.csv":          "CSV aula virtual",
		}
	}
	return funcs
}

func textFuncs() texttmpl.FuncMap {
	return texttmpl.FuncMap(commonFuncs())
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
