package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/services"
)

type ProfileHandler struct {
	profiles   *services.MongoProfileService
	authClient *fbauth.Client
}

func NewProfileHandler(profiles *services.MongoProfileService, authClient *fbauth.Client) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, authClient: authClient}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetOrCreate(ctx, userID, email)
	if err != nil {
		log.Printf("[GetProfile] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

func (h *ProfileHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}
	email := middleware.GetUserEmail(r.Context())

	var req models.UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if req.HeightCM != nil && (*req.HeightCM < 50 || *req.HeightCM > 250) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Height is out of range"))
		return
	}
	if req.GoalWeightKG != nil && (*req.GoalWeightKG <= 0 || *req.GoalWeightKG > 500) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Goal weight is out of range"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.Upsert(ctx, userID, email, &req)
	if err != nil {
		log.Printf("[UpsertProfile] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update profile"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// AddWeight appends a weigh-in to the user's weight history.
func (h *ProfileHandler) AddWeight(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.AddWeightRequest
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

	entry := models.WeightEntry{
		Date:     time.Now().UTC(),
		WeightKG: req.WeightKG,
	}
	prof, err := h.profiles.AddWeightEntry(ctx, userID, entry)
	if err != nil {
		log.Printf("[AddWeight] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to record weight"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(prof))
}

// GetPublicProfileByUserID returns a public-safe profile for the requested
// userId (no weight history, no email).
func (h *ProfileHandler) GetPublicProfileByUserID(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	targetID := chi.URLParam(r, "userId")
	if targetID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing userId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	prof, err := h.profiles.GetByUserID(ctx, targetID)
	if err != nil {
		// Fallback: if no Mongo profile exists yet, try Firebase Auth.
		if h.authClient == nil {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		u, err2 := h.authClient.GetUser(ctx, targetID)
		if err2 != nil {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Profile not found"))
			return
		}
		pub := models.PublicProfile{
			UserID:      targetID,
			DisplayName: u.DisplayName,
			PhotoURL:    u.PhotoURL,
		}
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(pub))
		return
	}

	pub := models.PublicProfile{
		UserID:      prof.UserID,
		DisplayName: prof.DisplayName,
		Bio:         prof.Bio,
		PhotoURL:    prof.PhotoURL,
		Points:      prof.Points,
	}

	// Best-effort fill missing fields from Firebase Auth.
	if h.authClient != nil && (pub.DisplayName == "" || pub.PhotoURL == "") {
		if u, err2 := h.authClient.GetUser(ctx, targetID); err2 == nil {
			if pub.DisplayName == "" {
				pub.DisplayName = u.DisplayName
			}
			if pub.PhotoURL == "" {
				pub.PhotoURL = u.PhotoURL
			}
		}
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(pub))
}
