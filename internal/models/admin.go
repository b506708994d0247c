package models

import (
	"time"

	"github.com/clubedasmusas/backend/internal/moderation"
)

// Admin is a panel operator. Admins authenticate with email/password and a
// JWT session, separate from the Firebase identities of app users.
type Admin struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Name         string    `json:"name" bson:"name"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *AdminLoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type AdminAuthResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

// AdminUserRow is one line of the admin user table: the profile joined with
// the derived status plus the independent badge booleans, since a user can be
// feed-banned and muted at the same time.
type AdminUserRow struct {
	Profile    Profile               `json:"profile"`
	Flags      moderation.FlagRecord `json:"flags"`
	Status     moderation.Status     `json:"status"`
	Banned     bool                  `json:"banned"`
	FeedBanned bool                  `json:"feed_banned"`
	Muted      bool                  `json:"muted"`
}

// ModerationActionRequest carries the parameters for mute/ban commands.
// Duration is in hours to match the admin panel presets (24/72/168).
type ModerationActionRequest struct {
	DurationHours int    `json:"duration_hours"`
	Reason        string `json:"reason"`
}

func (r *ModerationActionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.DurationHours <= 0 {
		errors["duration_hours"] = "Duration must be at least one hour"
	}

	return errors
}

type PenalizeRequest struct {
	Amount int `json:"amount"`
}

func (r *PenalizeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Amount <= 0 {
		errors["amount"] = "Amount must be greater than zero"
	}

	return errors
}
