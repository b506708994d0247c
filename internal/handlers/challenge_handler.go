package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/progress"
	"github.com/clubedasmusas/backend/internal/services"
)

type ChallengeHandler struct {
	challenges *services.MongoChallengeService
	profiles   *services.MongoProfileService
}

func NewChallengeHandler(challenges *services.MongoChallengeService, profiles *services.MongoProfileService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, profiles: profiles}
}

type challengeWithParticipation struct {
	models.Challenge
	Participating bool       `json:"participating"`
	Progress      int        `json:"progress"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// List returns all challenges annotated with the caller's participation.
func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	challenges, err := h.challenges.ListAll(ctx)
	if err != nil {
		log.Printf("[ListChallenges] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load challenges"))
		return
	}

	mine, err := h.challenges.ListParticipations(ctx, userID)
	if err != nil {
		log.Printf("[ListChallenges] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load challenges"))
		return
	}

	byChallenge := make(map[string]progress.Participation, len(mine))
	for _, p := range mine {
		byChallenge[p.ChallengeID] = p
	}

	out := make([]challengeWithParticipation, 0, len(challenges))
	for _, ch := range challenges {
		row := challengeWithParticipation{Challenge: ch}
		if p, ok := byChallenge[ch.ID]; ok {
			row.Participating = true
			row.Progress = p.Progress
			row.CompletedAt = p.CompletedAt
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(out))
}

// Join enrolls the caller in a challenge at zero progress.
func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	challengeID := chi.URLParam(r, "challengeId")
	if challengeID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing challengeId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.challenges.Join(ctx, userID, challengeID, time.Now().UTC())
	if err != nil {
		switch err {
		case services.ErrChallengeNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Challenge not found"))
		case progress.ErrAlreadyParticipating:
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Already participating in this challenge"))
		default:
			log.Printf("[JoinChallenge] user=%s challenge=%s error=%v", userID, challengeID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to join challenge"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(p))
}

// UpdateProgress moves the caller's progress on a challenge. Reward points
// are credited exactly once, on the transition to 100.
func (h *ChallengeHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	challengeID := chi.URLParam(r, "challengeId")
	if challengeID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing challengeId"))
		return
	}

	var req models.UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, completedNow, err := h.challenges.UpdateProgress(ctx, userID, challengeID, req.Progress, time.Now().UTC())
	if err != nil {
		if err == progress.ErrNotParticipating {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not participating in this challenge"))
			return
		}
		log.Printf("[UpdateProgress] user=%s challenge=%s error=%v", userID, challengeID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update progress"))
		return
	}

	if completedNow {
		if ch, err := h.challenges.GetByID(ctx, challengeID); err == nil && ch.RewardPoints > 0 {
			if err := h.profiles.AddPoints(ctx, userID, ch.RewardPoints); err != nil {
				log.Printf("[UpdateProgress] reward credit failed user=%s challenge=%s error=%v", userID, challengeID, err)
			}
		}
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(p))
}

// MyStats summarizes the caller's participations for the profile screen.
func (h *ChallengeHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	mine, err := h.challenges.ListParticipations(ctx, userID)
	if err != nil {
		log.Printf("[MyStats] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load stats"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(progress.Summarize(mine)))
}
