package catalog

import "time"

// Service is one bookable offering. Price is stored in cents; bookings copy
// the fields they need into a snapshot, so edits here never rewrite history.
type Service struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	Name            string    `bson:"name" json:"name"`
	Slug            string    `bson:"slug" json:"slug"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	Price           int       `bson:"price" json:"price"`
	DurationMinutes int       `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CreateRequest struct {
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description"`
	Price           int    `json:"price" validate:"gte=0"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,gte=5,lte=240"`
}

type UpdateRequest struct {
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description"`
	Price           int    `json:"price" validate:"gte=0"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,gte=5,lte=240"`
	Active          *bool  `json:"active"`
}
