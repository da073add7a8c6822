package loyalty

import "time"

// DefaultGoal is the number of stars a new card needs for a reward.
const DefaultGoal = 5

// Card tracks one client's stamps, keyed by contact phone. Stars only move
// by +1 (a stamp) or -goal (a redemption); surplus carries over.
type Card struct {
	Contact              string    `bson:"_id" json:"contact"`
	Name                 string    `bson:"name" json:"name"`
	Stars                int       `bson:"stars" json:"stars"`
	Goal                 int       `bson:"goal" json:"goal"`
	LifetimeAppointments int       `bson:"lifetimeAppointments" json:"lifetimeAppointments"`
	CreatedAt            time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt" json:"updatedAt"`
}

type AddStarRequest struct {
	Contact string `json:"contact" validate:"required,phone"`
	Name    string `json:"name"`
}

type CreateCardRequest struct {
	Contact string `json:"contact" validate:"required,phone"`
	Name    string `json:"name" validate:"required"`
	Goal    int    `json:"goal" validate:"omitempty,gt=0,lte=50"`
}

type RedeemRequest struct {
	Contact string `json:"contact" validate:"required,phone"`
}
