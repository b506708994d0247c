package models

import "time"

// Post is one entry on the community feed. PhotoURL may point at a
// pending/ storage path until the moderation worker promotes or rejects it.
type Post struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Text      string    `json:"text" bson:"text"`
	PhotoURL  string    `json:"photo_url" bson:"photo_url,omitempty"`
	Likes     int       `json:"likes" bson:"-"`
	LikedByMe bool      `json:"liked_by_me" bson:"-"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type CreatePostRequest struct {
	Text     string `json:"text"`
	PhotoURL string `json:"photo_url"`
}

func (r *CreatePostRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Text == "" && r.PhotoURL == "" {
		errors["text"] = "Post needs text or a photo"
	}
	if len(r.Text) > 2000 {
		errors["text"] = "Post text is too long"
	}

	return errors
}

// Report is an abuse report filed by a user against a post or another user.
type Report struct {
	ID           string    `json:"id" bson:"_id"`
	ReporterID   string    `json:"reporter_id" bson:"reporter_id"`
	TargetUserID string    `json:"target_user_id" bson:"target_user_id,omitempty"`
	TargetPostID string    `json:"target_post_id" bson:"target_post_id,omitempty"`
	Reason       string    `json:"reason" bson:"reason"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type CreateReportRequest struct {
	TargetUserID   string `json:"target_user_id"`
	TargetPostID   string `json:"target_post_id"`
	Reason         string `json:"reason"`
	CaptchaToken   string `json:"captcha_token"`
}

func (r *CreateReportRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.TargetUserID == "" && r.TargetPostID == "" {
		errors["target"] = "Report needs a target user or post"
	}
	if r.Reason == "" {
		errors["reason"] = "Reason is required"
	}

	return errors
}
