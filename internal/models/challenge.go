package models

import "time"

// Challenge is admin-authored content users can join and progress through.
type Challenge struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description" bson:"description,omitempty"`
	CoverPhoto   string    `json:"cover_photo" bson:"cover_photo,omitempty"`
	DurationDays int       `json:"duration_days" bson:"duration_days"`
	RewardPoints int       `json:"reward_points" bson:"reward_points"`
	Premium      bool      `json:"premium" bson:"premium"`
	PriceCents   int       `json:"price_cents" bson:"price_cents,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type UpsertChallengeRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	CoverPhoto   string `json:"cover_photo"`
	DurationDays int    `json:"duration_days"`
	RewardPoints int    `json:"reward_points"`
	Premium      bool   `json:"premium"`
	PriceCents   int    `json:"price_cents"`
}

func (r *UpsertChallengeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.DurationDays <= 0 {
		errors["duration_days"] = "Duration must be at least one day"
	}
	if r.RewardPoints < 0 {
		errors["reward_points"] = "Reward points cannot be negative"
	}
	if r.PriceCents < 0 {
		errors["price_cents"] = "Price cannot be negative"
	}

	return errors
}

type UpdateProgressRequest struct {
	Progress int `json:"progress"`
}
