package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusCount is the number of enrollments in a status.
type StatusCount struct {
	Status EnrollmentStatus `db:"status" json:"status"`
	Total  int              `db:"total" json:"total"`
}

// CourseCount breaks enrollments down per course.
type CourseCount struct {
	CourseName   string `db:"course_name" json:"course_name"`
	Pending      int    `db:"pending" json:"pending"`
	Matriculated int    `db:"matriculated" json:"matriculated"`
}

// CurrencyTotal sums payments in one currency.
type CurrencyTotal struct {
	Currency string          `db:"currency" json:"currency"`
	Count    int             `db:"count" json:"count"`
	Total    decimal.Decimal `db:"total" json:"total"`
}

// ReportSummary aggregates the panel dashboard figures.
type ReportSummary struct {
	Students      int             `json:"students"`
	ByStatus      []StatusCount   `json:"by_status"`
	ByCourse      []CourseCount   `json:"by_course"`
	PaymentTotals []CurrencyTotal `json:"payment_totals"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
