package dto

import "time"

// ExportFilter narrows exported enrollments.
type ExportFilter struct {
	CourseName string     `form:"course"`
	Status     string     `form:"status" validate:"omitempty,oneof=Inscrito Matriculado"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
}

// ExportFile is a rendered artifact ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
	Rows        int
}
