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

const SessionsCollection = "sessions"

// MongoSessions stores one document per session with the token as _id.
type MongoSessions struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoSessions(db *mongo.Database) *MongoSessions {
	return &MongoSessions{col: db.Collection(SessionsCollection), timeout: DefaultCallTimeout}
}

// EnsureIndexes adds a username index for DeleteByUsername and a TTL index
// so the server reaps abandoned sessions even if the sweeper never runs.
func (s *MongoSessions) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("idx_username"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	})
	return wrapDriverErr(ctx, "sessions: ensure indexes", err)
}

func (s *MongoSessions) Insert(ctx context.Context, session *models.Session) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	_, err := s.col.InsertOne(ctx, session)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.ErrConflict
	}
	return wrapDriverErr(ctx, "sessions: insert", err)
}

func (s *MongoSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	var sess models.Session
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapDriverErr(ctx, "sessions: find", err)
	}
	return &sess, nil
}

func (s *MongoSessions) UpdateExpiry(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"last_activity_at": lastActivityAt,
			"expires_at":       expiresAt,
		}},
	)
	if err != nil {
		return wrapDriverErr(ctx, "sessions: update expiry", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MongoSessions) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return wrapDriverErr(ctx, "sessions: delete", err)
}

func (s *MongoSessions) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	res, err := s.col.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return 0, wrapDriverErr(ctx, "sessions: delete by username", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, wrapDriverErr(ctx, "sessions: delete expired", err)
	}
	return res.DeletedCount, nil
}
