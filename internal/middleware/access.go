package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/moderation"
)

// FlagSource loads a user's moderation flags. Satisfied by the Mongo flag
// service; the interface keeps this package off the driver.
type FlagSource interface {
	Get(ctx context.Context, userID string) (*moderation.FlagRecord, error)
}

// AccessGate rejects app-banned users on the routes it wraps; profile and
// account deletion are mounted outside it so a banned user can still see
// their own data and leave. Feed bans and mutes are narrower and enforced by
// the feed handlers, not here. Must run after FirebaseAuth so the UID is on
// the context.
func AccessGate(flags FlagSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
				return
			}

			record, err := flags.Get(r.Context(), userID)
			if err != nil {
				// Fail open: a flags outage must not take the whole app down.
				log.Printf("[AccessGate] flags lookup failed user=%s err=%v", userID, err)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now().UTC()
			if moderation.IsBannedNow(*record, now) {
				msg := "Your account is suspended"
				if record.BanReason != "" {
					msg = "Your account is suspended: " + record.BanReason
				}
				writeJSON(w, http.StatusForbidden, models.NewErrorResponse(msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
