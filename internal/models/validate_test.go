package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreatePostRequestNeedsContent(t *testing.T) {
	req := CreatePostRequest{}
	errs := req.Validate()
	assert.Contains(t, errs, "text")

	req = CreatePostRequest{PhotoURL: "pending/posts/p1.jpg"}
	assert.Empty(t, req.Validate())
}

func TestCreateReportRequestNeedsTargetAndReason(t *testing.T) {
	req := CreateReportRequest{}
	errs := req.Validate()
	assert.Contains(t, errs, "target")
	assert.Contains(t, errs, "reason")

	req = CreateReportRequest{TargetPostID: "post-1", Reason: "spam"}
	assert.Empty(t, req.Validate())
}

func TestModerationActionRequestRejectsZeroDuration(t *testing.T) {
	req := ModerationActionRequest{DurationHours: 0}
	assert.Contains(t, req.Validate(), "duration_hours")

	req.DurationHours = 72
	assert.Empty(t, req.Validate())
}

func TestUpsertChallengeRequestValidation(t *testing.T) {
	req := UpsertChallengeRequest{Title: "21 dias", DurationDays: 21}
	assert.Empty(t, req.Validate())

	req.DurationDays = 0
	assert.Contains(t, req.Validate(), "duration_days")

	req.DurationDays = 21
	req.RewardPoints = -5
	assert.Contains(t, req.Validate(), "reward_points")
}

func TestAddWeightRequestRange(t *testing.T) {
	assert.Contains(t, (&AddWeightRequest{WeightKG: 0}).Validate(), "weight_kg")
	assert.Contains(t, (&AddWeightRequest{WeightKG: 600}).Validate(), "weight_kg")
	assert.Empty(t, (&AddWeightRequest{WeightKG: 72.5}).Validate())
}
