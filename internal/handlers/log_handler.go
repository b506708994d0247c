package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/consistency"
	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/services"
)

type LogHandler struct {
	logs *services.MongoLogService
}

func NewLogHandler(logs *services.MongoLogService) *LogHandler {
	return &LogHandler{logs: logs}
}

// GetToday returns the user's log for the current day. A day with no
// check-ins yet comes back as an all-false log rather than a 404, so the
// client always has something to render.
func (h *LogHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	entry, err := h.logs.GetForDate(ctx, userID, now)
	if err != nil {
		log.Printf("[GetToday] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load daily log"))
		return
	}
	if entry == nil {
		entry = &consistency.DailyLog{
			UserID: userID,
			Date:   consistency.DateOnly(now),
		}
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(entry))
}

// ToggleCheck flips one habit boolean on today's log. The field comes from
// the URL so the client cannot invent new habits.
func (h *LogHandler) ToggleCheck(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	field := consistency.CheckField(chi.URLParam(r, "field"))

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	entry, err := h.logs.Toggle(ctx, userID, field, time.Now().UTC())
	if err != nil {
		if err == consistency.ErrUnknownField {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Unknown check-in field"))
			return
		}
		if err == services.ErrStaleWrite {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Daily log changed, please try again"))
			return
		}
		log.Printf("[ToggleCheck] user=%s field=%s error=%v", userID, field, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update daily log"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(entry))
}

type setNoteRequest struct {
	Note string `json:"note"`
}

func (h *LogHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req setNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if len(req.Note) > 1000 {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Note is too long"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.logs.SetNote(ctx, userID, req.Note, time.Now().UTC()); err != nil {
		log.Printf("[SetNote] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to save note"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// GetCalendar returns the check-in calendar for a 7 or 30 day window.
func (h *LogHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	window, ok := windowParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Window must be 7 or 30 days"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	logs, err := h.logs.ListWindow(ctx, userID, window, now)
	if err != nil {
		log.Printf("[GetCalendar] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load calendar"))
		return
	}

	cal := consistency.BuildCalendar(logs, window, now)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(cal))
}

type consistencyResponse struct {
	WindowDays int `json:"window_days"`
	Percentage int `json:"percentage"`
}

// GetConsistency returns the rolling percentage of fully-checked days.
func (h *LogHandler) GetConsistency(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	window, ok := windowParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Window must be 7 or 30 days"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	logs, err := h.logs.ListWindow(ctx, userID, window, now)
	if err != nil {
		log.Printf("[GetConsistency] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load consistency"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(consistencyResponse{
		WindowDays: window,
		Percentage: consistency.Percentage(logs, window, now),
	}))
}

// windowParam parses ?window=, defaulting to 7. Only the two windows the app
// renders are allowed.
func windowParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return 7, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n != 7 && n != 30 {
		return 0, false
	}
	return n, true
}
