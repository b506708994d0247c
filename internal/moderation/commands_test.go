package moderation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubedasmusas/backend/internal/moderation"
)

func TestMuteForUsesOnlyTimedField(t *testing.T) {
	f := moderation.MuteFor(moderation.FlagRecord{}, 72, now)

	assert.False(t, f.IsMuted, "timed mute must not set the sticky flag")
	require.NotNil(t, f.MutedUntil)
	assert.Equal(t, now.Add(72*time.Hour), *f.MutedUntil)

	// Expires on its own.
	assert.Equal(t, moderation.StatusMuted, moderation.Evaluate(f, now))
	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(f, now.Add(73*time.Hour)))
}

func TestBanFromFeed(t *testing.T) {
	f := moderation.BanFromFeed(moderation.FlagRecord{}, 24, now)
	require.NotNil(t, f.FeedBannedUntil)
	assert.Equal(t, now.Add(24*time.Hour), *f.FeedBannedUntil)
	assert.Equal(t, moderation.StatusFeedBanned, moderation.Evaluate(f, now))
}

func TestBanFromApp(t *testing.T) {
	f := moderation.BanFromApp(moderation.FlagRecord{}, 48, "spam", now)
	require.NotNil(t, f.BannedUntil)
	assert.Equal(t, "spam", f.BanReason)
	assert.Equal(t, moderation.StatusTimeBanned, moderation.Evaluate(f, now))
	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(f, now.Add(49*time.Hour)))
}

func TestBanPermanentlyClearsTimer(t *testing.T) {
	f := moderation.BanFromApp(moderation.FlagRecord{}, 48, "spam", now)
	f = moderation.BanPermanently(f, "repeat offender")

	assert.True(t, f.IsBanned)
	assert.Nil(t, f.BannedUntil, "permanence overrides the countdown")
	assert.Equal(t, "repeat offender", f.BanReason)
}

func TestUnbanAllClearsEverythingAndIsIdempotent(t *testing.T) {
	f := moderation.FlagRecord{UserID: "u1", Strikes: 3}
	f = moderation.BanPermanently(f, "x")
	f = moderation.BanFromFeed(f, 24, now)
	f = moderation.MuteFor(f, 24, now)
	f = moderation.MutePermanently(f)

	once := moderation.UnbanAll(f)
	twice := moderation.UnbanAll(once)

	assert.Equal(t, moderation.StatusActive, moderation.Evaluate(once, now))
	assert.Equal(t, once, twice)
	assert.Equal(t, "u1", once.UserID)
	assert.Equal(t, 3, once.Strikes, "unban does not erase the strike history")
}

func TestUnmuteAll(t *testing.T) {
	f := moderation.MutePermanently(moderation.MuteFor(moderation.FlagRecord{}, 10, now))
	f = moderation.UnmuteAll(f)
	assert.False(t, f.IsMuted)
	assert.Nil(t, f.MutedUntil)
}

func TestPenalizePointsFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0, moderation.PenalizePoints(30, 50))
	assert.Equal(t, 20, moderation.PenalizePoints(50, 30))
	assert.Equal(t, 0, moderation.PenalizePoints(0, 10))
}
