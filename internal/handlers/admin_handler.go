package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/moderation"
	"github.com/clubedasmusas/backend/internal/services"
)

const (
	loginRateLimit  = 10
	loginRateWindow = 15 * time.Minute
)

type AdminHandler struct {
	admins        *services.MongoAdminService
	profiles      *services.MongoProfileService
	flags         *services.MongoFlagService
	limiter       *services.RateLimiter
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAdminHandler(admins *services.MongoAdminService, profiles *services.MongoProfileService, flags *services.MongoFlagService, limiter *services.RateLimiter, jwtSecret string, jwtExpiration time.Duration) *AdminHandler {
	return &AdminHandler{
		admins:        admins,
		profiles:      profiles,
		flags:         flags,
		limiter:       limiter,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Login authenticates a panel operator and issues an HMAC session token.
// Attempts are rate limited per IP so the endpoint cannot be brute-forced.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ip := clientIP(r)
	if h.limiter != nil && ip != "" {
		ok, err := h.limiter.Allow(ctx, "admin_login", ip, loginRateLimit, loginRateWindow)
		if err != nil {
			log.Printf("[AdminLogin] rate limit check failed ip=%s err=%v", ip, err)
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse("Too many login attempts, try again later"))
			return
		}
	}

	admin, err := h.admins.Login(ctx, &req)
	if err != nil {
		if err == services.ErrAdminNotFound || err == services.ErrInvalidPassword {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		log.Printf("[AdminLogin] email=%s error=%v", req.Email, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	token, err := h.issueToken(admin.ID)
	if err != nil {
		log.Printf("[AdminLogin] token error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	if h.limiter != nil && ip != "" {
		_ = h.limiter.Reset(ctx, "admin_login", ip)
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AdminAuthResponse{
		Token: token,
		Admin: *admin,
	}))
}

func (h *AdminHandler) issueToken(adminID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"iat":      now.Unix(),
		"exp":      now.Add(h.jwtExpiration).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}

// ListUsers returns every profile joined with its moderation flags and the
// derived status, for the panel's user table.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	profiles, err := h.profiles.ListAll(ctx)
	if err != nil {
		log.Printf("[AdminListUsers] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load users"))
		return
	}

	flagsByUser, err := h.flags.GetAll(ctx)
	if err != nil {
		log.Printf("[AdminListUsers] flags error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load users"))
		return
	}

	now := time.Now().UTC()
	rows := make([]models.AdminUserRow, 0, len(profiles))
	for _, prof := range profiles {
		record := flagsByUser[prof.UserID]
		record.UserID = prof.UserID
		rows = append(rows, models.AdminUserRow{
			Profile:    prof,
			Flags:      record,
			Status:     moderation.Evaluate(record, now),
			Banned:     moderation.IsBannedNow(record, now),
			FeedBanned: moderation.IsFeedBannedNow(record, now),
			Muted:      moderation.IsMutedNow(record, now),
		})
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(rows))
}

// applyFlagCommand loads a user's flags, runs transform on them, and saves
// with the optimistic version check. A lost race surfaces as 409 so the
// panel reloads instead of silently clobbering a concurrent action.
func (h *AdminHandler) applyFlagCommand(w http.ResponseWriter, r *http.Request, transform func(moderation.FlagRecord, time.Time) moderation.FlagRecord) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	record, err := h.flags.Get(ctx, userID)
	if err != nil {
		log.Printf("[AdminModeration] load flags user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load user flags"))
		return
	}

	now := time.Now().UTC()
	next := transform(*record, now)

	updated, err := h.flags.Save(ctx, next)
	if err != nil {
		if err == services.ErrStaleWrite {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("User flags changed concurrently, reload and retry"))
			return
		}
		log.Printf("[AdminModeration] save flags user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update user flags"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AdminUserRow{
		Flags:      *updated,
		Status:     moderation.Evaluate(*updated, now),
		Banned:     moderation.IsBannedNow(*updated, now),
		FeedBanned: moderation.IsFeedBannedNow(*updated, now),
		Muted:      moderation.IsMutedNow(*updated, now),
	}))
}

func (h *AdminHandler) MuteUser(w http.ResponseWriter, r *http.Request) {
	var req models.ModerationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.MuteFor(f, req.DurationHours, now)
	})
}

func (h *AdminHandler) MuteUserPermanently(w http.ResponseWriter, r *http.Request) {
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.MutePermanently(f)
	})
}

func (h *AdminHandler) UnmuteUser(w http.ResponseWriter, r *http.Request) {
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.UnmuteAll(f)
	})
}

func (h *AdminHandler) BanUserFromFeed(w http.ResponseWriter, r *http.Request) {
	var req models.ModerationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.BanFromFeed(f, req.DurationHours, now)
	})
}

func (h *AdminHandler) BanUserFromApp(w http.ResponseWriter, r *http.Request) {
	var req models.ModerationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.BanFromApp(f, req.DurationHours, req.Reason, now)
	})
}

func (h *AdminHandler) BanUserPermanently(w http.ResponseWriter, r *http.Request) {
	var req models.ModerationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.BanPermanently(f, req.Reason)
	})
}

func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	h.applyFlagCommand(w, r, func(f moderation.FlagRecord, now time.Time) moderation.FlagRecord {
		return moderation.UnbanAll(f)
	})
}

// PenalizeUser deducts points from a user's balance, flooring at zero.
func (h *AdminHandler) PenalizeUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	var req models.PenalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetByUserID(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User not found"))
		return
	}

	remaining := moderation.PenalizePoints(prof.Points, req.Amount)
	if err := h.profiles.SetPoints(ctx, userID, remaining); err != nil {
		log.Printf("[AdminPenalize] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to penalize user"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]int{"points": remaining}))
}
