package models

import "time"

// Student represents a person who registers for courses.
type Student struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	NationalID string    `db:"national_id" json:"national_id"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	Address    string    `db:"address" json:"address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentSummary is a list row with enrollment counters.
type StudentSummary struct {
	Student
	EnrollmentCount   int `db:"enrollment_count" json:"enrollment_count"`
	MatriculatedCount int `db:"matriculated_count" json:"matriculated_count"`
}

// StudentProfile is a student with the ordered enrollments it owns.
type StudentProfile struct {
	Student
	Enrollments []Enrollment `json:"enrollments"`
}

// StudentFilter captures list filters.
type StudentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
