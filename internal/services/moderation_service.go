package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ErrImageRejected is returned when SafeSearch flags an image as unsafe.
var ErrImageRejected = errors.New("image rejected: violates community guidelines")

// ModerationResult holds the outcome of a successful moderation pass.
type ModerationResult struct {
	ApprovedURL string
}

// ModerationService runs Vision SafeSearch on images uploaded to Firebase
// Storage and promotes safe ones from pending/ to their final path.
type ModerationService struct {
	gcs     *storage.Client
	bucket  string
	actions *ModerationActions
}

// NewModerationService creates a storage client once at startup. actions may
// be nil when strike tracking is not needed (e.g. local tooling).
func NewModerationService(ctx context.Context, bucket string, actions *ModerationActions) (*ModerationService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("moderation: storage client: %w", err)
	}
	return &ModerationService{
		gcs:     client,
		bucket:  bucket,
		actions: actions,
	}, nil
}

// ModerateAndPromote runs SafeSearch on a pending/ path. If safe, promotes
// (copy to final path, delete pending, return download URL). If unsafe,
// deletes the pending object, applies the strike policy, and returns
// ErrImageRejected.
func (m *ModerationService) ModerateAndPromote(ctx context.Context, pendingPath, userID, refID, imageType string) (*ModerationResult, error) {
	if !strings.HasPrefix(pendingPath, "pending/") {
		// Already approved, nothing to do.
		return &ModerationResult{ApprovedURL: pendingPath}, nil
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", m.bucket, pendingPath)
	log.Printf("[moderation] running SafeSearch on %s", gcsURI)

	ss, err := DetectSafeSearch(ctx, gcsURI)
	if err != nil {
		log.Printf("[moderation] SafeSearch error path=%s err=%v", pendingPath, err)
		return nil, fmt.Errorf("moderation: safesearch: %w", err)
	}

	log.Printf("[moderation] SafeSearch result for %s: adult=%s violence=%s racy=%s isUnsafe=%v",
		pendingPath, ss.Adult, ss.Violence, ss.Racy, ss.IsUnsafe())

	if ss.IsUnsafe() {
		log.Printf("[moderation] image UNSAFE — deleting %s", pendingPath)
		if err := m.deleteObject(ctx, pendingPath); err != nil {
			log.Printf("[moderation] delete failed path=%s err=%v", pendingPath, err)
		}
		if m.actions != nil && userID != "" {
			if err := m.actions.StrikeAndClear(ctx, userID, refID, pendingPath, imageType); err != nil {
				log.Printf("[moderation] strike failed userID=%s err=%v", userID, err)
			}
		}
		return nil, ErrImageRejected
	}

	// Safe — promote.
	finalName := strings.TrimPrefix(pendingPath, "pending/")
	token := newToken()
	approvedURL := firebaseDownloadURL(m.bucket, finalName, token)

	log.Printf("[moderation] image SAFE — promoting %s -> %s", pendingPath, finalName)
	if err := m.promoteObject(ctx, pendingPath, finalName, token); err != nil {
		return nil, fmt.Errorf("moderation: promote: %w", err)
	}

	return &ModerationResult{ApprovedURL: approvedURL}, nil
}

func (m *ModerationService) promoteObject(ctx context.Context, from, to, token string) error {
	b := m.gcs.Bucket(m.bucket)
	src := b.Object(from)
	dst := b.Object(to)

	// Firebase Storage may need a moment to finalize uploads before the
	// object is readable, so retry Attrs a few times.
	var attrs *storage.ObjectAttrs
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		attrs, err = src.Attrs(ctx)
		if err == nil {
			break
		}
		if err == storage.ErrObjectNotExist && attempt < maxRetries-1 {
			backoff := time.Duration(attempt+1) * 500 * time.Millisecond
			log.Printf("[moderation] object not found yet, retrying in %v (attempt %d/%d): %s", backoff, attempt+1, maxRetries, from)
			time.Sleep(backoff)
			continue
		}
		return fmt.Errorf("source attrs: %w", err)
	}

	md := map[string]string{}
	for k, v := range attrs.Metadata {
		md[k] = v
	}
	md["moderation"] = "approved"
	md["firebaseStorageDownloadTokens"] = token

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if _, err := dst.Update(ctx, storage.ObjectAttrsToUpdate{Metadata: md}); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return src.Delete(ctx)
}

func (m *ModerationService) deleteObject(ctx context.Context, name string) error {
	return m.gcs.Bucket(m.bucket).Object(name).Delete(ctx)
}

// DeleteObjects best-effort removes a batch of storage objects (account
// deletion cleanup). URLs that are not objects in this bucket are skipped.
func (m *ModerationService) DeleteObjects(ctx context.Context, names []string) {
	for _, name := range names {
		obj := objectNameFromURL(m.bucket, name)
		if obj == "" {
			continue
		}
		if err := m.deleteObject(ctx, obj); err != nil && err != storage.ErrObjectNotExist {
			log.Printf("[moderation] cleanup delete failed object=%s err=%v", obj, err)
		}
	}
}

// objectNameFromURL extracts the object path from a Firebase download URL.
// Bare object paths pass through unchanged.
func objectNameFromURL(bucket, raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http") {
		return raw
	}
	prefix := fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/", bucket)
	if !strings.HasPrefix(raw, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(raw, prefix)
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return ""
	}
	return decoded
}

func newToken() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}

func firebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
