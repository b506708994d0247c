package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/moderation"
	"github.com/clubedasmusas/backend/internal/services"
)

type FeedHandler struct {
	posts *services.MongoPostService
	flags *services.MongoFlagService
}

func NewFeedHandler(posts *services.MongoPostService, flags *services.MongoFlagService) *FeedHandler {
	return &FeedHandler{posts: posts, flags: flags}
}

// List returns the newest feed posts. Reading the feed is allowed even for
// feed-banned users; only writing is gated.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	posts, err := h.posts.List(ctx, userID, limit)
	if err != nil {
		log.Printf("[ListFeed] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load feed"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(posts))
}

// CreatePost publishes to the feed. Feed-banned and muted users are turned
// away here; the photo may point at a pending/ path and will be promoted or
// cleared by the moderation worker.
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if status, msg := h.writeGate(ctx, userID); status != 0 {
		writeJSON(w, status, models.NewErrorResponse(msg))
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	post, err := h.posts.Create(ctx, userID, &req)
	if err != nil {
		log.Printf("[CreatePost] user=%s error=%v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create post"))
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(post))
}

func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	postID := chi.URLParam(r, "postId")
	if postID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing postId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.posts.Delete(ctx, userID, postID); err != nil {
		switch err {
		case services.ErrPostNotFound:
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Post not found"))
		case services.ErrUnauthorized:
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("You can only delete your own posts"))
		default:
			log.Printf("[DeletePost] user=%s post=%s error=%v", userID, postID, err)
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to delete post"))
		}
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// Like is gated like posting: interacting with the feed counts as feed
// activity, but muted users may still like.
func (h *FeedHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.likeOrUnlike(w, r, true)
}

func (h *FeedHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.likeOrUnlike(w, r, false)
}

func (h *FeedHandler) likeOrUnlike(w http.ResponseWriter, r *http.Request, like bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	postID := chi.URLParam(r, "postId")
	if postID == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Missing postId"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if like {
		if record, err := h.flags.Get(ctx, userID); err == nil {
			if moderation.IsFeedBannedNow(*record, time.Now().UTC()) {
				writeJSON(w, http.StatusForbidden, models.NewErrorResponse("You are temporarily banned from the feed"))
				return
			}
		}
	}

	var err error
	if like {
		err = h.posts.Like(ctx, userID, postID)
	} else {
		err = h.posts.Unlike(ctx, userID, postID)
	}
	if err != nil {
		if err == services.ErrPostNotFound {
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Post not found"))
			return
		}
		log.Printf("[Like] user=%s post=%s like=%v error=%v", userID, postID, like, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update like"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

// writeGate returns a non-zero status when the user may not publish to the
// feed right now. Flag lookups fail open, matching the access middleware.
func (h *FeedHandler) writeGate(ctx context.Context, userID string) (int, string) {
	record, err := h.flags.Get(ctx, userID)
	if err != nil {
		log.Printf("[FeedGate] flags lookup failed user=%s err=%v", userID, err)
		return 0, ""
	}

	now := time.Now().UTC()
	if moderation.IsFeedBannedNow(*record, now) {
		return http.StatusForbidden, "You are temporarily banned from the feed"
	}
	if moderation.IsMutedNow(*record, now) {
		return http.StatusForbidden, "You are muted and cannot post right now"
	}
	return 0, ""
}
