package models

import "time"

// Profile is user-editable profile data stored in Mongo and keyed by Firebase UID.
type Profile struct {
	UserID       string        `json:"user_id" bson:"user_id"`
	Email        string        `json:"email" bson:"email,omitempty"`
	DisplayName  string        `json:"display_name" bson:"display_name,omitempty"`
	Bio          string        `json:"bio" bson:"bio,omitempty"`
	PhotoURL     string        `json:"photo_url" bson:"photo_url,omitempty"`
	HeightCM     float64       `json:"height_cm" bson:"height_cm,omitempty"`
	GoalWeightKG float64       `json:"goal_weight_kg" bson:"goal_weight_kg,omitempty"`
	Points       int           `json:"points" bson:"points"`
	Weights      []WeightEntry `json:"weights" bson:"weights,omitempty"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

// WeightEntry is one weigh-in on the profile's weight history.
type WeightEntry struct {
	Date     time.Time `json:"date" bson:"date"`
	WeightKG float64   `json:"weight_kg" bson:"weight_kg"`
}

// PublicProfile is safe to share with other authenticated users (no weight history).
type PublicProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	PhotoURL    string `json:"photo_url"`
	Points      int    `json:"points"`
}

type UpsertProfileRequest struct {
	DisplayName  *string  `json:"display_name"`
	Bio          *string  `json:"bio"`
	PhotoURL     *string  `json:"photo_url"`
	HeightCM     *float64 `json:"height_cm"`
	GoalWeightKG *float64 `json:"goal_weight_kg"`
}

type AddWeightRequest struct {
	WeightKG float64 `json:"weight_kg"`
}

func (r *AddWeightRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.WeightKG <= 0 {
		errors["weight_kg"] = "Weight must be greater than zero"
	} else if r.WeightKG > 500 {
		errors["weight_kg"] = "Weight is out of range"
	}

	return errors
}
