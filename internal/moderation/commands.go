package moderation

import "time"

// Admin commands. Each returns the full next record for the caller to persist
// atomically; a persistence failure must leave the stored record untouched
// (no partial application across the flag fields).

// MuteFor sets a time-boxed mute. It touches only MutedUntil; the sticky
// IsMuted boolean belongs to MutePermanently, so a timed mute lapses on its
// own when the timer expires.
func MuteFor(f FlagRecord, durationHours int, now time.Time) FlagRecord {
	until := now.Add(time.Duration(durationHours) * time.Hour)
	f.MutedUntil = &until
	return f
}

// MutePermanently sets the sticky mute flag. Only UnmuteAll or UnbanAll clear it.
func MutePermanently(f FlagRecord) FlagRecord {
	f.IsMuted = true
	return f
}

// UnmuteAll clears both mute fields.
func UnmuteAll(f FlagRecord) FlagRecord {
	f.IsMuted = false
	f.MutedUntil = nil
	return f
}

// BanFromFeed restricts posting for the given number of hours.
func BanFromFeed(f FlagRecord, durationHours int, now time.Time) FlagRecord {
	until := now.Add(time.Duration(durationHours) * time.Hour)
	f.FeedBannedUntil = &until
	return f
}

// BanFromApp sets a time-boxed app-wide ban with a reason.
func BanFromApp(f FlagRecord, durationHours int, reason string, now time.Time) FlagRecord {
	until := now.Add(time.Duration(durationHours) * time.Hour)
	f.BannedUntil = &until
	f.BanReason = reason
	return f
}

// BanPermanently sets the permanent flag and clears any ban timer; permanence
// overrides a running countdown.
func BanPermanently(f FlagRecord, reason string) FlagRecord {
	f.IsBanned = true
	f.BannedUntil = nil
	f.BanReason = reason
	return f
}

// UnbanAll resets every restriction in one transform so partial-unban states
// never reach storage. Idempotent.
func UnbanAll(f FlagRecord) FlagRecord {
	f.IsBanned = false
	f.BannedUntil = nil
	f.BanReason = ""
	f.FeedBannedUntil = nil
	f.IsMuted = false
	f.MutedUntil = nil
	return f
}

// PenalizePoints subtracts amount from a points balance, flooring at zero.
func PenalizePoints(currentPoints, amount int) int {
	next := currentPoints - amount
	if next < 0 {
		return 0
	}
	return next
}
