package services

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/models"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrUnauthorized = errors.New("unauthorized to modify this post")
)

type MongoPostService struct {
	client    *mongo.Client
	db        *mongo.Database
	postsColl *mongo.Collection
	likesColl *mongo.Collection
}

func NewMongoPostService(ctx context.Context, mongoURI, dbName string) (*MongoPostService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	posts := db.Collection("posts")
	likes := db.Collection("post_likes")

	svc := &MongoPostService{
		client:    client,
		db:        db,
		postsColl: posts,
		likesColl: likes,
	}

	// Best-effort indexes.
	_, _ = posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	_, _ = likes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "post_id", Value: 1}}},
	})

	return svc, nil
}

func (s *MongoPostService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoPostService) Create(ctx context.Context, userID string, req *models.CreatePostRequest) (*models.Post, error) {
	post := models.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      req.Text,
		PhotoURL:  req.PhotoURL,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.postsColl.InsertOne(ctx, post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *MongoPostService) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := s.postsColl.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// List returns the newest posts with like counts, annotated with whether
// viewerID already liked each one.
func (s *MongoPostService) List(ctx context.Context, viewerID string, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	cur, err := s.postsColl.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := make([]models.Post, 0)
	postIDs := make([]string, 0)
	for cur.Next(ctx) {
		var p models.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
		postIDs = append(postIDs, p.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	counts, mine, err := s.likeCounts(ctx, postIDs, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Likes = counts[posts[i].ID]
		posts[i].LikedByMe = mine[posts[i].ID]
	}
	return posts, nil
}

// Delete removes a post and its likes. Only the author may delete their post;
// admin deletion goes through DeleteAsAdmin.
func (s *MongoPostService) Delete(ctx context.Context, userID, postID string) error {
	var post models.Post
	if err := s.postsColl.FindOne(ctx, bson.M{"_id": postID}).Decode(&post); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrPostNotFound
		}
		return err
	}
	if post.UserID != userID {
		return ErrUnauthorized
	}
	return s.deleteWithLikes(ctx, postID)
}

func (s *MongoPostService) DeleteAsAdmin(ctx context.Context, postID string) error {
	res, err := s.postsColl.DeleteOne(ctx, bson.M{"_id": postID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	_, _ = s.likesColl.DeleteMany(ctx, bson.M{"post_id": postID})
	return nil
}

func (s *MongoPostService) deleteWithLikes(ctx context.Context, postID string) error {
	if _, err := s.likesColl.DeleteMany(ctx, bson.M{"post_id": postID}); err != nil {
		return err
	}
	if _, err := s.postsColl.DeleteOne(ctx, bson.M{"_id": postID}); err != nil {
		return err
	}
	return nil
}

// Like is idempotent: liking twice keeps a single like thanks to the unique
// (user_id, post_id) index.
func (s *MongoPostService) Like(ctx context.Context, userID, postID string) error {
	if _, err := s.GetByID(ctx, postID); err != nil {
		return err
	}

	_, err := s.likesColl.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "post_id": postID},
		bson.M{"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"user_id":    userID,
			"post_id":    postID,
			"created_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoPostService) Unlike(ctx context.Context, userID, postID string) error {
	_, err := s.likesColl.DeleteOne(ctx, bson.M{"user_id": userID, "post_id": postID})
	return err
}

func (s *MongoPostService) likeCounts(ctx context.Context, postIDs []string, viewerID string) (map[string]int, map[string]bool, error) {
	cur, err := s.likesColl.Find(ctx, bson.M{"post_id": bson.M{"$in": postIDs}})
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	counts := make(map[string]int)
	mine := make(map[string]bool)
	for cur.Next(ctx) {
		var like struct {
			UserID string `bson:"user_id"`
			PostID string `bson:"post_id"`
		}
		if err := cur.Decode(&like); err != nil {
			return nil, nil, err
		}
		counts[like.PostID]++
		if like.UserID == viewerID {
			mine[like.PostID] = true
		}
	}
	if err := cur.Err(); err != nil {
		return nil, nil, err
	}
	return counts, mine, nil
}

// ApprovePendingPostPhoto rewrites any post photo that still points at the
// pending path to the final approved download URL.
func (s *MongoPostService) ApprovePendingPostPhoto(ctx context.Context, pendingPath string, approvedURL string) error {
	if strings.TrimSpace(pendingPath) == "" || strings.TrimSpace(approvedURL) == "" {
		return nil
	}
	_, err := s.postsColl.UpdateMany(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": approvedURL},
	})
	return err
}

// RejectPendingPostPhoto clears the photo on any post still referencing the
// pending path.
func (s *MongoPostService) RejectPendingPostPhoto(ctx context.Context, pendingPath string) error {
	if strings.TrimSpace(pendingPath) == "" {
		return nil
	}
	_, err := s.postsColl.UpdateMany(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": ""},
	})
	return err
}

// ClearPhotoIfMatches clears a specific post's photo if it still carries url.
func (s *MongoPostService) ClearPhotoIfMatches(ctx context.Context, postID string, url string) error {
	if postID == "" || url == "" {
		return nil
	}
	_, err := s.postsColl.UpdateOne(ctx, bson.M{"_id": postID, "photo_url": url}, bson.M{
		"$set": bson.M{"photo_url": ""},
	})
	return err
}
