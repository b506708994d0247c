package handlers

import (
	"log"
	"net/http"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/services"
)

type AccountHandler struct {
	accounts   *services.MongoAccountService
	moderation *services.ModerationService
}

func NewAccountHandler(accounts *services.MongoAccountService, moderation *services.ModerationService) *AccountHandler {
	return &AccountHandler{accounts: accounts, moderation: moderation}
}

// DeleteAccount removes all backend data for the authenticated user and
// best-effort deletes their storage objects. The Firebase Auth user itself is
// deleted client-side after this call succeeds.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), services.DefaultAccountTimeout())
	defer cancel()

	result, err := h.accounts.DeleteAccount(ctx, userID)
	if err != nil {
		log.Printf("[DeleteAccount] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete account"))
		return
	}

	if h.moderation != nil && len(result.ImageURLs) > 0 {
		h.moderation.DeleteObjects(ctx, result.ImageURLs)
	}

	log.Printf("[DeleteAccount] user=%s posts=%d images=%d", userID, len(result.PostIDs), len(result.ImageURLs))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(result))
}
