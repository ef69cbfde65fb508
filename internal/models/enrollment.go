package models

import (
	"fmt"
	"time"
)

// EnrollmentStatus is the approval state of an enrollment.
type EnrollmentStatus string

const (
	// EnrollmentStatusPending marks a registration waiting for approval.
	EnrollmentStatusPending EnrollmentStatus = "Inscrito"
	// EnrollmentStatusMatriculated marks an approved enrollment holding an enrollment number.
	EnrollmentStatusMatriculated EnrollmentStatus = "Matriculado"
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusPending || s == EnrollmentStatusMatriculated
}

// CallStatus tracks the follow-up call made by an agent.
type CallStatus string

const (
	CallStatusPending   CallStatus = "pendiente"
	CallStatusContacted CallStatus = "contactado"
	CallStatusNoAnswer  CallStatus = "no_contesta"
	CallStatusDiscarded CallStatus = "descartado"
)

// CallStatuses lists call statuses in display order.
var CallStatuses = []CallStatus{CallStatusPending, CallStatusContacted, CallStatusNoAnswer, CallStatusDiscarded}

// Valid reports whether s is a known call status.
func (s CallStatus) Valid() bool {
	for _, known := range CallStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Enrollment is a student's registration in one course offering, addressed by (student, position).
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	Position         int              `db:"position" json:"index"`
	CourseID         *string          `db:"course_id" json:"course_id,omitempty"`
	CourseName       string           `db:"course_name" json:"course_name"`
	Schedule         string           `db:"schedule" json:"schedule"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	EnrollmentNumber *string          `db:"enrollment_number" json:"enrollment_number,omitempty"`
	CallStatus       CallStatus       `db:"call_status" json:"call_status"`
	AgentID          *string          `db:"agent_id" json:"agent_id,omitempty"`
	ApprovedAt       *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy       *string          `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// Matriculated reports whether the enrollment has been approved.
func (e Enrollment) Matriculated() bool {
	return e.Status == EnrollmentStatusMatriculated
}

// EnrollmentRow is an enrollment joined with the student and agent columns shown in panel tables.
type EnrollmentRow struct {
	Enrollment
	StudentName  string  `db:"student_name" json:"student_name"`
	NationalID   string  `db:"national_id" json:"national_id"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	StudentPhone string  `db:"student_phone" json:"student_phone"`
	AgentName    *string `db:"agent_name" json:"agent_name,omitempty"`
}

// EnrollmentFilter captures list and export filters.
type EnrollmentFilter struct {
	Status     EnrollmentStatus
	CourseName string
	Search     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// FormatEnrollmentNumber renders the enrollment number for the seq-th approval of year.
func FormatEnrollmentNumber(year, seq int) string {
	return fmt.Sprintf("MAT-%d-%05d", year, seq)
}
