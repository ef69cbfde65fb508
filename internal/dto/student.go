package dto

import "github.com/noah-isme/academic-panel/internal/models"

// StudentRequest creates a student or updates a profile.
type StudentRequest struct {
	FullName   string `json:"full_name" form:"full_name" validate:"required,max=200"`
	NationalID string `json:"national_id" form:"national_id" validate:"required,max=40"`
	Email      string `json:"email" form:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" form:"phone" validate:"max=40"`
	Address    string `json:"address" form:"address" validate:"max=300"`
}

// ProfileResponse is the profile fragment plus the record it renders.
type ProfileResponse struct {
	HTML    string                 `json:"html"`
	Student *models.StudentProfile `json:"student"`
}
