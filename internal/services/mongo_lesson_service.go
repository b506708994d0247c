package services

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/models"
)

var ErrLessonNotFound = errors.New("lesson not found")

type MongoLessonService struct {
	client      *mongo.Client
	db          *mongo.Database
	lessonsColl *mongo.Collection
	viewsColl   *mongo.Collection
}

func NewMongoLessonService(ctx context.Context, mongoURI, dbName string) (*MongoLessonService, error) {
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
	lessons := db.Collection("lessons")
	views := db.Collection("lesson_views")

	// Best-effort indexes.
	_, _ = lessons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "order", Value: 1}},
	})
	_, _ = views.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "lesson_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoLessonService{
		client:      client,
		db:          db,
		lessonsColl: lessons,
		viewsColl:   views,
	}, nil
}

func (s *MongoLessonService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoLessonService) Create(ctx context.Context, req *models.UpsertLessonRequest) (*models.Lesson, error) {
	lesson := models.Lesson{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Category:  req.Category,
		VideoURL:  req.VideoURL,
		Order:     req.Order,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.lessonsColl.InsertOne(ctx, lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (s *MongoLessonService) Update(ctx context.Context, lessonID string, req *models.UpsertLessonRequest) (*models.Lesson, error) {
	res := s.lessonsColl.FindOneAndUpdate(
		ctx,
		bson.M{"_id": lessonID},
		bson.M{"$set": bson.M{
			"title":     req.Title,
			"category":  req.Category,
			"video_url": req.VideoURL,
			"order":     req.Order,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Lesson
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoLessonService) Delete(ctx context.Context, lessonID string) error {
	res, err := s.lessonsColl.DeleteOne(ctx, bson.M{"_id": lessonID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrLessonNotFound
	}
	_, _ = s.viewsColl.DeleteMany(ctx, bson.M{"lesson_id": lessonID})
	return nil
}

// List returns lessons ordered by category and position, with the viewer's
// watched marks applied.
func (s *MongoLessonService) List(ctx context.Context, viewerID string) ([]models.Lesson, error) {
	cur, err := s.lessonsColl.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "order", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	lessons := make([]models.Lesson, 0)
	for cur.Next(ctx) {
		var l models.Lesson
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(lessons) == 0 || viewerID == "" {
		return lessons, nil
	}

	watched, err := s.watchedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		lessons[i].Watched = watched[lessons[i].ID]
	}
	return lessons, nil
}

// MarkWatched is idempotent via the unique (user_id, lesson_id) index.
func (s *MongoLessonService) MarkWatched(ctx context.Context, userID, lessonID string) error {
	var lesson models.Lesson
	if err := s.lessonsColl.FindOne(ctx, bson.M{"_id": lessonID}).Decode(&lesson); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrLessonNotFound
		}
		return err
	}

	_, err := s.viewsColl.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "lesson_id": lessonID},
		bson.M{"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"user_id":    userID,
			"lesson_id":  lessonID,
			"watched_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoLessonService) watchedSet(ctx context.Context, userID string) (map[string]bool, error) {
	cur, err := s.viewsColl.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]bool)
	for cur.Next(ctx) {
		var view struct {
			LessonID string `bson:"lesson_id"`
		}
		if err := cur.Decode(&view); err != nil {
			return nil, err
		}
		out[view.LessonID] = true
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
