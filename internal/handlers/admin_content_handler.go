package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/moderation"
	"github.com/clubedasmusas/backend/internal/progress"
	"github.com/clubedasmusas/backend/internal/services"
	"github.com/clubedasmusas/backend/internal/storage"
)

// AdminContentHandler covers the panel's content management: challenges,
// lessons, feed cleanup, the report queue, dashboard aggregates, and exports.
type AdminContentHandler struct {
	challenges *services.MongoChallengeService
	lessons    *services.MongoLessonService
	posts      *services.MongoPostService
	reports    *services.MongoReportService
	profiles   *services.MongoProfileService
	flags      *services.MongoFlagService
	exports    *storage.ExportWriter
}

func NewAdminContentHandler(
	challenges *services.MongoChallengeService,
	lessons *services.MongoLessonService,
	posts *services.MongoPostService,
	reports *services.MongoReportService,
	profiles *services.MongoProfileService,
	flags *services.MongoFlagService,
	exports *storage.ExportWriter,
) *AdminContentHandler {
	return &AdminContentHandler{
		challenges: challenges,
		lessons:    lessons,
		posts:      posts,
		reports:    reports,
		profiles:   profiles,
		flags:      flags,
		exports:    exports,
	}
}

func (h *AdminContentHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertChallengeRequest
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

	ch, err := h.challenges.Create(ctx, &req)
	if err != nil {
		log.Printf("[AdminCreateChallenge] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create challenge"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(ch))
}

func (h *AdminContentHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeId")

	var req models.UpsertChallengeRequest
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

	ch, err := h.challenges.Update(ctx, challengeID, &req)
	if err != nil {
		if err == services.ErrChallengeNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Challenge not found"))
			return
		}
		log.Printf("[AdminUpdateChallenge] id=%s error=%v", challengeID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update challenge"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(ch))
}

func (h *AdminContentHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := chi.URLParam(r, "challengeId")

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.challenges.Delete(ctx, challengeID); err != nil {
		if err == services.ErrChallengeNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Challenge not found"))
			return
		}
		log.Printf("[AdminDeleteChallenge] id=%s error=%v", challengeID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete challenge"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *AdminContentHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertLessonRequest
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

	lesson, err := h.lessons.Create(ctx, &req)
	if err != nil {
		log.Printf("[AdminCreateLesson] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create lesson"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(lesson))
}

func (h *AdminContentHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonId")

	var req models.UpsertLessonRequest
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

	lesson, err := h.lessons.Update(ctx, lessonID, &req)
	if err != nil {
		if err == services.ErrLessonNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Lesson not found"))
			return
		}
		log.Printf("[AdminUpdateLesson] id=%s error=%v", lessonID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update lesson"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(lesson))
}

func (h *AdminContentHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonId")

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.lessons.Delete(ctx, lessonID); err != nil {
		if err == services.ErrLessonNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Lesson not found"))
			return
		}
		log.Printf("[AdminDeleteLesson] id=%s error=%v", lessonID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete lesson"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// DeletePost removes any post regardless of author, for moderation.
func (h *AdminContentHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.posts.DeleteAsAdmin(ctx, postID); err != nil {
		if err == services.ErrPostNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Post not found"))
			return
		}
		log.Printf("[AdminDeletePost] id=%s error=%v", postID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete post"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *AdminContentHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	reports, err := h.reports.ListRecent(ctx, 200)
	if err != nil {
		log.Printf("[AdminListReports] error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load reports"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(reports))
}

type dashboardResponse struct {
	TotalUsers         int            `json:"total_users"`
	TotalChallenges    int            `json:"total_challenges"`
	Participation      progress.Stats `json:"participation"`
	TotalRewardsEarned int            `json:"total_rewards_earned"`
}

// Dashboard aggregates the panel's landing page numbers.
func (h *AdminContentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	profiles, err := h.profiles.ListAll(ctx)
	if err != nil {
		log.Printf("[AdminDashboard] profiles error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load dashboard"))
		return
	}

	challenges, err := h.challenges.ListAll(ctx)
	if err != nil {
		log.Printf("[AdminDashboard] challenges error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load dashboard"))
		return
	}

	participations, err := h.challenges.ListAllParticipations(ctx)
	if err != nil {
		log.Printf("[AdminDashboard] participations error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load dashboard"))
		return
	}

	rewards := make(map[string]int, len(challenges))
	for _, ch := range challenges {
		rewards[ch.ID] = ch.RewardPoints
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(dashboardResponse{
		TotalUsers:         len(profiles),
		TotalChallenges:    len(challenges),
		Participation:      progress.Summarize(participations),
		TotalRewardsEarned: progress.TotalRewardPoints(participations, rewards),
	}))
}

type exportSnapshot struct {
	GeneratedAt    time.Time                        `json:"generated_at"`
	Profiles       []models.Profile                 `json:"profiles"`
	Flags          map[string]moderation.FlagRecord `json:"flags"`
	Challenges     []models.Challenge               `json:"challenges"`
	Participations []progress.Participation         `json:"participations"`
}

// Export writes a JSON snapshot of users and challenge data to disk and
// returns the path.
func (h *AdminContentHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse("Exports not configured"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	profiles, err := h.profiles.ListAll(ctx)
	if err != nil {
		log.Printf("[AdminExport] profiles error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to export data"))
		return
	}
	challenges, err := h.challenges.ListAll(ctx)
	if err != nil {
		log.Printf("[AdminExport] challenges error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to export data"))
		return
	}
	participations, err := h.challenges.ListAllParticipations(ctx)
	if err != nil {
		log.Printf("[AdminExport] participations error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to export data"))
		return
	}
	flags, err := h.flags.GetAll(ctx)
	if err != nil {
		log.Printf("[AdminExport] flags error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to export data"))
		return
	}

	now := time.Now().UTC()
	path, err := h.exports.Write("snapshot", exportSnapshot{
		GeneratedAt:    now,
		Profiles:       profiles,
		Flags:          flags,
		Challenges:     challenges,
		Participations: participations,
	}, now)
	if err != nil {
		log.Printf("[AdminExport] write error=%v", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to export data"))
		return
	}

	log.Printf("[AdminExport] snapshot written path=%s users=%d", path, len(profiles))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"path": path}))
}
