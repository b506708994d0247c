// Package moderation derives a user's effective access state from their
// moderation flags and applies admin commands as pure transforms. It performs
// no I/O; every time-dependent function takes the clock as a parameter so the
// surrounding services stay deterministic in tests.
package moderation

import "time"

// FlagRecord holds a user's moderation flags. Flags are independent and may
// co-occur (a user can be muted and feed-banned at the same time); the
// effective status is always derived, never stored.
type FlagRecord struct {
	UserID          string     `json:"user_id" bson:"user_id"`
	IsBanned        bool       `json:"is_banned" bson:"is_banned"`
	BannedUntil     *time.Time `json:"banned_until,omitempty" bson:"banned_until,omitempty"`
	BanReason       string     `json:"ban_reason,omitempty" bson:"ban_reason,omitempty"`
	FeedBannedUntil *time.Time `json:"feed_banned_until,omitempty" bson:"feed_banned_until,omitempty"`
	IsMuted         bool       `json:"is_muted" bson:"is_muted"`
	MutedUntil      *time.Time `json:"muted_until,omitempty" bson:"muted_until,omitempty"`

	// Persistence metadata. The evaluator ignores these.
	Strikes   int       `json:"strikes" bson:"strikes"`
	Version   int64     `json:"version" bson:"version"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Status is the single-line access state shown per user in the admin table.
type Status string

const (
	StatusActive            Status = "active"
	StatusMuted             Status = "muted"
	StatusFeedBanned        Status = "feed_banned"
	StatusTimeBanned        Status = "time_banned"
	StatusPermanentlyBanned Status = "permanently_banned"
)

func active(until *time.Time, now time.Time) bool {
	return until != nil && until.After(now)
}

// Evaluate returns the highest-severity applicable status at now.
// Precedence: permanent ban > timed app ban > feed ban > mute > active.
// Expired timers do not count and fall through to lower tiers.
func Evaluate(f FlagRecord, now time.Time) Status {
	switch {
	case f.IsBanned:
		return StatusPermanentlyBanned
	case active(f.BannedUntil, now):
		return StatusTimeBanned
	case active(f.FeedBannedUntil, now):
		return StatusFeedBanned
	case f.IsMuted || active(f.MutedUntil, now):
		return StatusMuted
	default:
		return StatusActive
	}
}

// IsBannedNow reports whether an app-wide ban (permanent or timed) is in effect.
func IsBannedNow(f FlagRecord, now time.Time) bool {
	return f.IsBanned || active(f.BannedUntil, now)
}

// IsFeedBannedNow reports whether the user may not post to the feed. An
// app-wide ban implies a feed ban.
func IsFeedBannedNow(f FlagRecord, now time.Time) bool {
	return IsBannedNow(f, now) || active(f.FeedBannedUntil, now)
}

// IsMutedNow reports the mute flags independently of the ban tiers, so the
// admin table can show a mute badge next to a ban badge.
func IsMutedNow(f FlagRecord, now time.Time) bool {
	return f.IsMuted || active(f.MutedUntil, now)
}
