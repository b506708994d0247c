package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/clubedasmusas/backend/internal/config"
	"github.com/clubedasmusas/backend/internal/services"
)

// Eventarc delivers CloudEvents; for GCS finalized events the body contains
// object info. Minimal fields we need: bucket, name, metadata.
type gcsFinalizeEvent struct {
	Bucket   string            `json:"bucket"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// cloudEventEnvelope handles Eventarc structured content mode where the GCS
// payload is nested inside a "data" field.
type cloudEventEnvelope struct {
	Data gcsFinalizeEvent `json:"data"`
}

func main() {
	_ = godotenv.Load()
	port := getEnv("PORT", "8080")

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	http.HandleFunc("/events", handleFinalize)

	log.Printf("moderation-worker listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func handleFinalize(w http.ResponseWriter, r *http.Request) {
	// Only accept POSTs from Eventarc.
	if r.Method != http.MethodPost {
		log.Printf("[worker] rejected non-POST method=%s", r.Method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ceType := r.Header.Get("Ce-Type")
	ceSubject := r.Header.Get("Ce-Subject")
	log.Printf("[worker] event received: Ce-Type=%s Ce-Subject=%s Content-Type=%s",
		ceType, ceSubject, r.Header.Get("Content-Type"))

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[worker] failed to read request body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Try to decode as a direct GCS notification (binary content mode).
	var ev gcsFinalizeEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		log.Printf("[worker] failed to decode event body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// If bucket/name are empty, the event may be wrapped in a CloudEvent
	// envelope (structured content mode) with the GCS data nested under "data".
	if ev.Bucket == "" || ev.Name == "" {
		var envelope cloudEventEnvelope
		if err := json.Unmarshal(rawBody, &envelope); err == nil && envelope.Data.Bucket != "" && envelope.Data.Name != "" {
			ev = envelope.Data
		}
	}

	log.Printf("[worker] parsed event: bucket=%s name=%s metadata=%v", ev.Bucket, ev.Name, ev.Metadata)

	// Only process pending uploads.
	if ev.Bucket == "" || ev.Name == "" {
		log.Printf("[worker] skipping event: bucket or name is empty after all parse attempts")
		w.WriteHeader(http.StatusOK)
		return
	}
	if !strings.HasPrefix(ev.Name, "pending/") {
		log.Printf("[worker] skipping non-pending object: name=%s", ev.Name)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	// If metadata was not in the event payload, fetch it from GCS directly.
	if ev.Metadata == nil || (ev.Metadata["userId"] == "" && ev.Metadata["type"] == "") {
		if fetchedMeta, err := fetchGCSObjectMetadata(ctx, ev.Bucket, ev.Name); err != nil {
			log.Printf("[worker] failed to fetch GCS object metadata: %v", err)
		} else {
			ev.Metadata = fetchedMeta
		}
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", ev.Bucket, ev.Name)
	log.Printf("[worker] running SafeSearch on %s", gcsURI)

	ss, err := services.DetectSafeSearch(ctx, gcsURI)
	if err != nil {
		log.Printf("[worker] safesearch error bucket=%s name=%s err=%v", ev.Bucket, ev.Name, err)
		// Retry by returning 500; Eventarc will retry.
		http.Error(w, "safesearch failed", http.StatusInternalServerError)
		return
	}

	log.Printf("[worker] safesearch result for %s: adult=%s violence=%s racy=%s isUnsafe=%v",
		ev.Name, ss.Adult, ss.Violence, ss.Racy, ss.IsUnsafe())

	cfg := config.Load()

	profSvc, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Printf("[worker] mongo profile service init failed: %v", err)
		http.Error(w, "mongo profile init failed", http.StatusInternalServerError)
		return
	}
	defer profSvc.Close(ctx)

	postSvc, err := services.NewMongoPostService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Printf("[worker] mongo post service init failed: %v", err)
		http.Error(w, "mongo post init failed", http.StatusInternalServerError)
		return
	}
	defer postSvc.Close(ctx)

	flagSvc, err := services.NewMongoFlagService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Printf("[worker] mongo flag service init failed: %v", err)
		http.Error(w, "mongo flag init failed", http.StatusInternalServerError)
		return
	}
	defer flagSvc.Close(ctx)

	userID := ""
	typ := ""
	refID := ""
	if ev.Metadata != nil {
		userID = ev.Metadata["userId"]
		typ = ev.Metadata["type"]
		refID = ev.Metadata["refId"]
	}
	log.Printf("[worker] extracted metadata: userID=%s type=%s refID=%s", userID, typ, refID)

	if userID == "" {
		log.Printf("[worker] WARNING: userID is empty — references by pending path still clear but strikes cannot be recorded")
	}

	// Unsafe: delete object, clear references, apply the strike policy.
	if ss.IsUnsafe() {
		log.Printf("[worker] image UNSAFE — deleting object and clearing references: name=%s userID=%s type=%s",
			ev.Name, userID, typ)

		if err := deleteGCSObject(ctx, ev.Bucket, ev.Name); err != nil {
			log.Printf("[worker] delete object failed bucket=%s name=%s err=%v", ev.Bucket, ev.Name, err)
			http.Error(w, "delete failed", http.StatusInternalServerError)
			return
		}

		actions := &services.ModerationActions{
			Flags:         flagSvc,
			Profiles:      profSvc,
			Posts:         postSvc,
			PenaltyPoints: cfg.StrikePenaltyPoints,
			BanThreshold:  cfg.StrikeBanThreshold,
			FeedBanHours:  cfg.StrikeFeedBanHours,
		}
		if err := actions.StrikeAndClear(ctx, userID, refID, ev.Name, typ); err != nil {
			log.Printf("[worker] strike policy failed userID=%s err=%v", userID, err)
		}

		log.Printf("[worker] DONE (unsafe): name=%s", ev.Name)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Safe: promote to approved path (strip pending/) and set moderation=approved.
	finalName := strings.TrimPrefix(ev.Name, "pending/")
	token := newToken()
	approvedURL := firebaseDownloadURL(ev.Bucket, finalName, token)

	log.Printf("[worker] image SAFE — promoting: from=%s to=%s", ev.Name, finalName)

	if err := promoteObject(ctx, ev.Bucket, ev.Name, finalName, ev.Metadata, token); err != nil {
		log.Printf("[worker] promote failed bucket=%s from=%s to=%s err=%v", ev.Bucket, ev.Name, finalName, err)
		http.Error(w, "promote failed", http.StatusInternalServerError)
		return
	}

	// Update Mongo to point at the approved download URL.
	switch typ {
	case "post_photo":
		if err := postSvc.ApprovePendingPostPhoto(ctx, ev.Name, approvedURL); err != nil {
			log.Printf("[worker] ApprovePendingPostPhoto failed for path=%s: %v", ev.Name, err)
		}
	case "profile_photo":
		if err := profSvc.ApprovePendingProfilePhoto(ctx, ev.Name, approvedURL); err != nil {
			log.Printf("[worker] ApprovePendingProfilePhoto failed for path=%s: %v", ev.Name, err)
		}
	default:
		log.Printf("[worker] WARNING: unknown type=%q for safe image, no Mongo references updated", typ)
	}

	log.Printf("[worker] DONE (safe): name=%s approvedURL=%s", ev.Name, approvedURL)
	w.WriteHeader(http.StatusOK)
}

func fetchGCSObjectMetadata(ctx context.Context, bucket, name string) (map[string]string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	defer client.Close()

	attrs, err := client.Bucket(bucket).Object(name).Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("object attrs: %w", err)
	}
	return attrs.Metadata, nil
}

func deleteGCSObject(ctx context.Context, bucket, name string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Bucket(bucket).Object(name).Delete(ctx)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newToken() string {
	// Firebase download token is an arbitrary string; a time-based token
	// avoids pulling extra deps into the worker.
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

func firebaseDownloadURL(bucket string, objectName string, token string) string {
	// https://firebasestorage.googleapis.com/v0/b/{bucket}/o/{path}?alt=media&token={token}
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}

func promoteObject(ctx context.Context, bucket string, from string, to string, originalMeta map[string]string, token string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	b := client.Bucket(bucket)
	src := b.Object(from)
	dst := b.Object(to)

	// Keep original metadata, mark approved, add the Firebase token.
	md := map[string]string{}
	for k, v := range originalMeta {
		md[k] = v
	}
	md["moderation"] = "approved"
	md["firebaseStorageDownloadTokens"] = token

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return err
	}
	if _, err := dst.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: md}); err != nil {
		return err
	}
	return src.Delete(ctx)
}
