package dto

import "github.com/noah-isme/academic-panel/internal/models"

// EnrollmentRef addresses one enrollment by student and 0-based index.
type EnrollmentRef struct {
	StudentID string `json:"student_id" form:"student_id" validate:"required,uuid"`
	Index     *int   `json:"index" form:"index" validate:"required,min=0"`
}

// ApproveRequest is the payload of POST /enrollments/approve.
type ApproveRequest struct {
	EnrollmentRef
}

// ApproveBatchRequest is the payload of POST /enrollments/approve-batch.
type ApproveBatchRequest struct {
	Items []EnrollmentRef `json:"items" validate:"required,min=1,max=200,dive"`
}

// ApprovalResponse is the updated row plus its re-rendered markup.
type ApprovalResponse struct {
	Row  models.EnrollmentRow `json:"row"`
	HTML string               `json:"html,omitempty"`
}

// BatchFailure describes one item of a batch that could not be approved.
type BatchFailure struct {
	StudentID string `json:"student_id"`
	Index     int    `json:"index"`
	Message   string `json:"message"`
}

// BatchApprovalResult collects the outcome of every item.
type BatchApprovalResult struct {
	Approved []models.EnrollmentRow `json:"approved"`
	Failed   []BatchFailure         `json:"failed"`
}

// CallStatusRequest updates call tracking of one enrollment.
type CallStatusRequest struct {
	EnrollmentRef
	CallStatus models.CallStatus `json:"call_status" form:"call_status" validate:"required,oneof=pendiente contactado no_contesta descartado"`
	AgentID    *string           `json:"agent_id,omitempty" form:"agent_id" validate:"omitempty,uuid"`
}

// CreateEnrollmentRequest appends an enrollment to a student.
type CreateEnrollmentRequest struct {
	CourseID   *string `json:"course_id,omitempty" validate:"omitempty,uuid"`
	CourseName string  `json:"course_name" validate:"required_without=CourseID,max=200"`
	Schedule   string  `json:"schedule" validate:"max=200"`
}
