package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is an offering in the catalog.
type Course struct {
	ID            string              `db:"id" json:"id"`
	Title         string              `db:"title" json:"title"`
	Category      string              `db:"category" json:"category"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	DiscountPrice decimal.NullDecimal `db:"discount_price" json:"discount_price"`
	Currency      string              `db:"currency" json:"currency"`
	Active        bool                `db:"active" json:"active"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
	Schedules     []CourseSchedule    `db:"-" json:"schedules"`
}

// EffectivePrice returns the discount price when set, otherwise the list price.
func (c Course) EffectivePrice() decimal.Decimal {
	if c.DiscountPrice.Valid {
		return c.DiscountPrice.Decimal
	}
	return c.Price
}

// CourseSchedule is one schedule/modality entry of a course.
type CourseSchedule struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	Position int    `db:"position" json:"position"`
	Label    string `db:"label" json:"label"`
	Modality string `db:"modality" json:"modality"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// CourseFilter captures list filters.
type CourseFilter struct {
	Search   string
	Category string
	Active   *bool
	Page     int
	PageSize int
}
