package services

import (
	"context"
	"log"
	"time"

	"github.com/clubedasmusas/backend/internal/moderation"
)

// ModerationActions applies the strike policy when an image is rejected:
// clear the offending reference, record a strike, deduct penalty points, and
// feed-ban the user once they hit the strike threshold.
type ModerationActions struct {
	Flags    *MongoFlagService
	Profiles *MongoProfileService
	Posts    *MongoPostService

	PenaltyPoints int
	BanThreshold  int
	FeedBanHours  int
}

// StrikeAndClear handles a rejected image. url is the pending path (or stored
// download URL) that Mongo documents may still reference; typ says where the
// image was headed ("post_photo" or "profile_photo").
func (m *ModerationActions) StrikeAndClear(ctx context.Context, userID string, refID string, url string, typ string) error {
	switch typ {
	case "post_photo":
		if m.Posts != nil {
			if refID != "" {
				_ = m.Posts.ClearPhotoIfMatches(ctx, refID, url)
			}
			_ = m.Posts.RejectPendingPostPhoto(ctx, url)
		}
	case "profile_photo":
		if m.Profiles != nil {
			if refID != "" {
				_ = m.Profiles.ClearPhotoIfMatches(ctx, refID, url)
			}
			_ = m.Profiles.RejectPendingProfilePhoto(ctx, url)
		}
	}

	if m.Flags == nil || userID == "" {
		return nil
	}

	flags, err := m.Flags.AddStrike(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("[moderation] strike recorded userID=%s strikes=%d", userID, flags.Strikes)

	if m.Profiles != nil && m.PenaltyPoints > 0 {
		if prof, err := m.Profiles.GetByUserID(ctx, userID); err == nil && prof != nil {
			remaining := moderation.PenalizePoints(prof.Points, m.PenaltyPoints)
			if err := m.Profiles.SetPoints(ctx, userID, remaining); err != nil {
				log.Printf("[moderation] point penalty failed userID=%s err=%v", userID, err)
			}
		}
	}

	m.maybeFeedBan(ctx, *flags)
	return nil
}

// maybeFeedBan applies the threshold ban. The CAS save means a concurrent
// admin action wins and the ban is retried on the next strike, which is fine.
func (m *ModerationActions) maybeFeedBan(ctx context.Context, flags moderation.FlagRecord) {
	if m.BanThreshold <= 0 || flags.Strikes < m.BanThreshold {
		return
	}
	now := time.Now().UTC()
	if moderation.IsFeedBannedNow(flags, now) {
		return
	}

	hours := m.FeedBanHours
	if hours <= 0 {
		hours = 72
	}
	next := moderation.BanFromFeed(flags, hours, now)
	if _, err := m.Flags.Save(ctx, next); err != nil {
		log.Printf("[moderation] threshold feed ban failed userID=%s err=%v", flags.UserID, err)
		return
	}
	log.Printf("[moderation] threshold feed ban applied userID=%s strikes=%d hours=%d", flags.UserID, flags.Strikes, hours)
}
