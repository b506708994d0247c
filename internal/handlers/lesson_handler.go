package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/services"
)

type LessonHandler struct {
	lessons *services.MongoLessonService
}

func NewLessonHandler(lessons *services.MongoLessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	lessons, err := h.lessons.List(ctx, userID)
	if err != nil {
		log.Printf("[ListLessons] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load lessons"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(lessons))
}

func (h *LessonHandler) MarkWatched(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	lessonID := chi.URLParam(r, "lessonId")
	if lessonID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing lessonId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.lessons.MarkWatched(ctx, userID, lessonID); err != nil {
		if err == services.ErrLessonNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Lesson not found"))
			return
		}
		log.Printf("[MarkWatched] user=%s lesson=%s error=%v", userID, lessonID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to mark lesson"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}
