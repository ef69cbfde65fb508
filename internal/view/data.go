package view

import (
	htmltmpl "html/template"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/pkg/response"
)

// ShellData feeds the panel page. Config is serialised into the page for the inline script.
type ShellData struct {
	Institution string
	User        models.UserInfo
	Tabs        []Tab
	Active      string
	Config      PanelConfig
}

// PanelConfig is read by the inline script: endpoints and one nonce per action.
type PanelConfig struct {
	APIPrefix string            `json:"api_prefix"`
	Nonces    map[string]string `json:"nonces"`
}

// LoginData feeds the sign-in page.
type LoginData struct {
	Institution string
	Email       string
	Error       string
	Action      string
}

// RowActions selects which row controls the viewer may use.
type RowActions struct {
	Approve bool
	Call    bool
}

// RowView is one enrollment row plus the controls rendered for it.
type RowView struct {
	models.EnrollmentRow
	Actions RowActions
}

// EnrollmentTable feeds the pending and matriculated tabs.
type EnrollmentTable struct {
	Rows       []models.EnrollmentRow
	Courses    []string
	Filter     models.EnrollmentFilter
	Pagination response.Pagination
	CanApprove bool
	CanExport  bool
	CanCall    bool
}

// RowViews attaches the table permissions to every row.
func (t EnrollmentTable) RowViews() []RowView {
	actions := RowActions{Approve: t.CanApprove, Call: t.CanCall}
	views := make([]RowView, len(t.Rows))
	for i, row := range t.Rows {
		views[i] = RowView{EnrollmentRow: row, Actions: actions}
	}
	return views
}

// CoursesTab feeds the courses tab.
type CoursesTab struct {
	Courses   []models.Course
	CanManage bool
}

// PaymentsTab feeds the payments tab.
type PaymentsTab struct {
	Payments   []models.Payment
	Concepts   []models.PaymentConcept
	Pagination response.Pagination
	CanManage  bool
}

// ActivityTab feeds the activity tab.
type ActivityTab struct {
	Entries    []models.ActivityLog
	Pagination response.Pagination
}

// EmailTab feeds the bulk email composer.
type EmailTab struct {
	Courses  []string
	Statuses []models.EnrollmentStatus
}

// EmailContext is the root object handed to email templates.
type EmailContext struct {
	Institution string
	Subject     string
	Data        interface{}
}

// InvoiceEmailData feeds the invoice notification.
type InvoiceEmailData struct {
	Payment *models.Payment
	Link    string
}

// BulkEmailData feeds the bulk email layout.
type BulkEmailData struct {
	Body htmltmpl.HTML
}
