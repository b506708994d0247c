package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/services"
)

const (
	reportRateLimit  = 5
	reportRateWindow = time.Hour
)

type ReportHandler struct {
	reports   *services.MongoReportService
	recaptcha *services.RecaptchaVerifier
	mailer    *services.SendGridMailer
	limiter   *services.RateLimiter
}

func NewReportHandler(reports *services.MongoReportService, recaptcha *services.RecaptchaVerifier, mailer *services.SendGridMailer, limiter *services.RateLimiter) *ReportHandler {
	return &ReportHandler{reports: reports, recaptcha: recaptcha, mailer: mailer, limiter: limiter}
}

// SubmitReport files an abuse report: rate limit per user, captcha, persist,
// then notify the moderation inbox. The email is best-effort; the report is
// already stored when it goes out.
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req models.CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if h.limiter != nil {
		ok, err := h.limiter.Allow(ctx, "report", userID, reportRateLimit, reportRateWindow)
		if err != nil {
			// Fail open on a Redis outage.
			log.Printf("[SubmitReport] rate limit check failed user=%s err=%v", userID, err)
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse("Too many reports, try again later"))
			return
		}
	}

	if h.recaptcha != nil {
		ok, reason, err := h.recaptcha.VerifyReportToken(ctx, req.CaptchaToken, clientIP(r))
		if err != nil {
			log.Printf("[SubmitReport] recaptcha error user=%s err=%v", userID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to verify reCAPTCHA"))
			return
		}
		if !ok {
			log.Printf("[SubmitReport] recaptcha failed user=%s reason=%s", userID, reason)
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("reCAPTCHA verification failed"))
			return
		}
	}

	report, err := h.reports.Create(ctx, userID, &req)
	if err != nil {
		log.Printf("[SubmitReport] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to submit report"))
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendReportEmail(ctx, report, middleware.GetUserEmail(r.Context())); err != nil {
			log.Printf("[SubmitReport] report=%s mail error=%v", report.ID, err)
		}
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(report))
}
