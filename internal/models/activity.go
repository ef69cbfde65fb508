package models

import "time"

// Activity actions recorded by the panel.
const (
	ActivityEnrollmentApproved = "enrollment_approved"
	ActivityBatchApproved      = "enrollment_batch_approved"
	ActivityCallStatusUpdated  = "call_status_updated"
	ActivityProfileUpdated     = "profile_updated"
	ActivityStudentCreated     = "student_created"
	ActivityEnrollmentCreated  = "enrollment_created"
	ActivityBulkEmailSent      = "bulk_email_sent"
	ActivityPaymentRecorded    = "payment_recorded"
	ActivityConceptSaved       = "payment_concept_saved"
	ActivityCourseSaved        = "course_saved"
	ActivityReportExported     = "report_exported"
)

// SystemActor is the display name for entries without an acting user.
const SystemActor = "Sistema"

// ActivityLog is an append-only audit entry. A nil UserID means the system acted.
type ActivityLog struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	UserName  *string   `db:"user_name" json:"user_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Actor returns the acting user's name or SystemActor.
func (a ActivityLog) Actor() string {
	if a.UserID == nil || a.UserName == nil || *a.UserName == "" {
		return SystemActor
	}
	return *a.UserName
}

// ActivityFilter captures list filters.
type ActivityFilter struct {
	Action   string
	UserID   string
	Page     int
	PageSize int
}
