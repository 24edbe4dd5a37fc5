package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

const UsersCollection = "users"

// MongoUsers is the UserStore backed by the users collection.
type MongoUsers struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection(UsersCollection), timeout: DefaultCallTimeout}
}

// EnsureIndexes creates the unique username index the store relies on to
// reject duplicate registrations that race past the existence check.
func (s *MongoUsers) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("uniq_username").SetUnique(true),
	})
	return wrapDriverErr(ctx, "users: ensure indexes", err)
}

func (s *MongoUsers) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	_, err := s.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Public(apperr.ErrConflict, "username already exists")
	}
	return wrapDriverErr(ctx, "users: insert", err)
}

func (s *MongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	var u models.User
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapDriverErr(ctx, "users: find", err)
	}
	return &u, nil
}
