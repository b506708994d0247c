package models

import "time"

// Lesson is admin-authored video content grouped by category.
type Lesson struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Category  string    `json:"category" bson:"category,omitempty"`
	VideoURL  string    `json:"video_url" bson:"video_url"`
	Order     int       `json:"order" bson:"order"`
	Watched   bool      `json:"watched" bson:"-"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type UpsertLessonRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	VideoURL string `json:"video_url"`
	Order    int    `json:"order"`
}

func (r *UpsertLessonRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.VideoURL == "" {
		errors["video_url"] = "Video URL is required"
	}

	return errors
}
