package services

import (
	"context"
	"crypto/tls"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoAccountService struct {
	client          *mongo.Client
	db              *mongo.Database
	profilesCol     *mongo.Collection
	flagsCol        *mongo.Collection
	logsCol         *mongo.Collection
	participantsCol *mongo.Collection
	postsCol        *mongo.Collection
	likesCol        *mongo.Collection
	viewsCol        *mongo.Collection
	reportsCol      *mongo.Collection
}

func NewMongoAccountService(ctx context.Context, mongoURI, dbName string) (*MongoAccountService, error) {
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
	return &MongoAccountService{
		client:          client,
		db:              db,
		profilesCol:     db.Collection("profiles"),
		flagsCol:        db.Collection("user_flags"),
		logsCol:         db.Collection("daily_logs"),
		participantsCol: db.Collection("challenge_participants"),
		postsCol:        db.Collection("posts"),
		likesCol:        db.Collection("post_likes"),
		viewsCol:        db.Collection("lesson_views"),
		reportsCol:      db.Collection("reports"),
	}, nil
}

func (s *MongoAccountService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type DeleteAccountResult struct {
	ImageURLs []string `json:"image_urls"`
	PostIDs   []string `json:"post_ids"`
}

// DeleteAccount deletes all data associated with the given Firebase UID:
// profile, moderation flags, daily logs, challenge participations, posts and
// their likes, lesson views, and reports the user filed. It returns storage
// image URLs (profile photo, post photos) so the caller can clean them up.
func (s *MongoAccountService) DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	urls := make(map[string]struct{})

	// profile.photo_url
	{
		var prof struct {
			PhotoURL string `bson:"photo_url"`
		}
		if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err == nil {
			if prof.PhotoURL != "" {
				urls[prof.PhotoURL] = struct{}{}
			}
		}
	}

	// posts + their photo urls
	type postDoc struct {
		ID       string `bson:"_id"`
		PhotoURL string `bson:"photo_url"`
	}
	postIDs := make([]string, 0)
	{
		cur, err := s.postsCol.Find(ctx, bson.M{"user_id": userID}, options.Find().SetProjection(bson.M{
			"_id":       1,
			"photo_url": 1,
		}))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var d postDoc
			if err := cur.Decode(&d); err != nil {
				return nil, err
			}
			postIDs = append(postIDs, d.ID)
			if d.PhotoURL != "" {
				urls[d.PhotoURL] = struct{}{}
			}
		}
		if err := cur.Err(); err != nil {
			return nil, err
		}
	}

	// Deletes. Likes first so nothing dangles while posts disappear.
	if len(postIDs) > 0 {
		_, _ = s.likesCol.DeleteMany(ctx, bson.M{
			"$or": []bson.M{
				{"user_id": userID},
				{"post_id": bson.M{"$in": postIDs}},
			},
		})
	} else {
		_, _ = s.likesCol.DeleteMany(ctx, bson.M{"user_id": userID})
	}

	_, _ = s.postsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	_, _ = s.viewsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	_, _ = s.participantsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	_, _ = s.logsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	_, _ = s.reportsCol.DeleteMany(ctx, bson.M{"reporter_id": userID})
	_, _ = s.flagsCol.DeleteOne(ctx, bson.M{"user_id": userID})
	_, _ = s.profilesCol.DeleteOne(ctx, bson.M{"user_id": userID})

	out := make([]string, 0, len(urls))
	for u := range urls {
		out = append(out, u)
	}

	return &DeleteAccountResult{
		ImageURLs: out,
		PostIDs:   postIDs,
	}, nil
}

// Helper for handlers that want a sane timeout.
func DefaultAccountTimeout() time.Duration { return 20 * time.Second }
