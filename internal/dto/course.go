package dto

import "github.com/shopspring/decimal"

// CourseScheduleInput is one schedule entry of a course payload.
type CourseScheduleInput struct {
	Label    string `json:"label" validate:"required,max=200"`
	Modality string `json:"modality" validate:"omitempty,oneof=presencial virtual hibrido"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

// CourseRequest creates or replaces a course.
type CourseRequest struct {
	Title         string                `json:"title" validate:"required,max=200"`
	Category      string                `json:"category" validate:"max=120"`
	Price         decimal.Decimal       `json:"price"`
	DiscountPrice decimal.NullDecimal   `json:"discount_price"`
	Currency      string                `json:"currency" validate:"omitempty,len=3"`
	Active        *bool                 `json:"active"`
	Schedules     []CourseScheduleInput `json:"schedules" validate:"dive"`
}
