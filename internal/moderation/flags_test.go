package moderation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clubedasmusas/backend/internal/moderation"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func hoursFromNow(h int) *time.Time {
	t := now.Add(time.Duration(h) * time.Hour)
	return &t
}

func TestEvaluatePrecedence(t *testing.T) {
	// A permanent ban wins over every other active flag.
	f := moderation.FlagRecord{
		IsBanned:        true,
		BannedUntil:     hoursFromNow(1),
		FeedBannedUntil: hoursFromNow(1),
		IsMuted:         true,
		MutedUntil:      hoursFromNow(1),
	}
	assert.Equal(t, moderation.StatusPermanentlyBanned, moderation.Evaluate(f, now))

	f.IsBanned = false
	assert.Equal(t, moderation.StatusTimeBanned, moderation.Evaluate(f, now))

	f.BannedUntil = nil
	assert.Equal(t, moderation.StatusFeedBanned, moderation.Evaluate(f, now))

	f.FeedBannedUntil = nil
	assert.Equal(t, moderation.StatusMuted, moderation.Evaluate(f, now))

	f.IsMuted = false
	f.MutedUntil = nil
	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(f, now))
}

func TestEvaluateExpiredBanDoesNotCount(t *testing.T) {
	f := moderation.FlagRecord{BannedUntil: hoursFromNow(-1)}
	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(f, now))
}

func TestEvaluateExpiredTimersFallThrough(t *testing.T) {
	f := moderation.FlagRecord{
		BannedUntil:     hoursFromNow(-2),
		FeedBannedUntil: hoursFromNow(-1),
		MutedUntil:      hoursFromNow(3),
	}
	assert.Equal(t, moderation.StatusMuted, moderation.Evaluate(f, now))
}

func TestStickyMuteWithoutTimer(t *testing.T) {
	f := moderation.FlagRecord{IsMuted: true}
	assert.Equal(t, moderation.StatusMuted, moderation.Evaluate(f, now))
	assert.True(t, moderation.IsMutedNow(f, now))
}

func TestPredicatesConsistentWithSummary(t *testing.T) {
	// Feed-banned AND muted: the summary reports only the feed ban, but the
	// mute predicate still reports true for the admin badge row.
	f := moderation.FlagRecord{
		FeedBannedUntil: hoursFromNow(5),
		MutedUntil:      hoursFromNow(5),
	}
	assert.Equal(t, moderation.StatusFeedBanned, moderation.Evaluate(f, now))
	assert.True(t, moderation.IsFeedBannedNow(f, now))
	assert.True(t, moderation.IsMutedNow(f, now))
	assert.False(t, moderation.IsBannedNow(f, now))
}

func TestAppBanImpliesFeedBan(t *testing.T) {
	f := moderation.FlagRecord{BannedUntil: hoursFromNow(2)}
	assert.True(t, moderation.IsFeedBannedNow(f, now))
}

func TestEvaluateBoundaryIsExclusive(t *testing.T) {
	// A timer equal to now is already expired (> now, not >=).
	exact := now
	f := moderation.FlagRecord{BannedUntil: &exact}
	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(f, now))
}
