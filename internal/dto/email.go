package dto

import "github.com/noah-isme/academic-panel/internal/models"

// BulkEmailRequest selects recipients by filter and/or an explicit list.
type BulkEmailRequest struct {
	Subject    string                  `json:"subject" form:"subject" validate:"required,max=200"`
	Body       string                  `json:"body" form:"body" validate:"required"`
	CourseName string                  `json:"course_name" form:"course_name"`
	Status     models.EnrollmentStatus `json:"status" form:"status" validate:"omitempty,oneof=Inscrito Matriculado"`
	Recipients []string                `json:"recipients" form:"recipients"`
}

// HasFilter reports whether the request selects students by course or status.
func (r BulkEmailRequest) HasFilter() bool {
	return r.CourseName != "" || r.Status != ""
}

// BulkEmailResult tallies a bulk send.
type BulkEmailResult struct {
	Total           int      `json:"total"`
	Sent            int      `json:"sent"`
	Failed          int      `json:"failed"`
	FailedAddresses []string `json:"failed_addresses"`
}
