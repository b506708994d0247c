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
	"golang.org/x/crypto/bcrypt"

	"github.com/clubedasmusas/backend/internal/models"
)

var (
	ErrAdminNotFound   = errors.New("admin not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
)

// MongoAdminService stores panel operator accounts. Admins are provisioned
// out of band (seed script or an existing admin); there is no self-signup.
type MongoAdminService struct {
	client    *mongo.Client
	db        *mongo.Database
	adminsCol *mongo.Collection
}

func NewMongoAdminService(ctx context.Context, mongoURI, dbName string) (*MongoAdminService, error) {
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
	col := db.Collection("admins")

	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoAdminService{client: client, db: db, adminsCol: col}, nil
}

func (s *MongoAdminService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoAdminService) Create(ctx context.Context, email, password, name string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := models.Admin{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.adminsCol.InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return &admin, nil
}

func (s *MongoAdminService) Login(ctx context.Context, req *models.AdminLoginRequest) (*models.Admin, error) {
	var admin models.Admin
	if err := s.adminsCol.FindOne(ctx, bson.M{"email": req.Email}).Decode(&admin); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return &admin, nil
}

func (s *MongoAdminService) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.adminsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&admin); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}
