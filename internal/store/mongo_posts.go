package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

const PostsCollection = "posts"

type MongoPosts struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewMongoPosts(db *mongo.Database) *MongoPosts {
	return &MongoPosts{col: db.Collection(PostsCollection), timeout: DefaultCallTimeout}
}

// EnsureIndexes supports the status and owner listings, newest first.
func (s *MongoPosts) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_status_created"),
		},
		{
			Keys: bson.D{
				{Key: "username", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_owner_created"),
		},
	})
	return wrapDriverErr(ctx, "posts: ensure indexes", err)
}

func (s *MongoPosts) Insert(ctx context.Context, post *models.Post) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, post)
	return wrapDriverErr(ctx, "posts: insert", err)
}

func (s *MongoPosts) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	var p models.Post
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapDriverErr(ctx, "posts: find", err)
	}
	return &p, nil
}

func (s *MongoPosts) List(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Username != "" {
		q["username"] = filter.Username
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(normalizeLimit(filter.Limit))
	if filter.Skip > 0 {
		opts.SetSkip(filter.Skip)
	}

	cur, err := s.col.Find(ctx, q, opts)
	if err != nil {
		return nil, wrapDriverErr(ctx, "posts: list", err)
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, wrapDriverErr(ctx, "posts: decode", err)
	}
	return posts, nil
}

func (s *MongoPosts) Replace(ctx context.Context, post *models.Post) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	if err != nil {
		return wrapDriverErr(ctx, "posts: replace", err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *MongoPosts) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapDriverErr(ctx, "posts: delete", err)
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// MigrateLegacy upgrades posts written before listings had a status: the
// camelCase animalType field is renamed, missing status becomes active and
// missing created_at is taken from the ObjectID. It is idempotent and
// returns the number of documents changed.
func (s *MongoPosts) MigrateLegacy(ctx context.Context) (int64, error) {
	steps := []struct {
		filter bson.M
		update interface{}
	}{
		{
			filter: bson.M{"animalType": bson.M{"$exists": true}},
			update: bson.M{"$rename": bson.M{"animalType": "animal_type"}},
		},
		{
			filter: bson.M{"status": bson.M{"$exists": false}},
			update: bson.M{"$set": bson.M{"status": models.PostStatusActive}},
		},
		{
			filter: bson.M{"created_at": bson.M{"$exists": false}},
			update: mongo.Pipeline{{{Key: "$set", Value: bson.M{
				"created_at": bson.M{"$toDate": "$_id"},
				"updated_at": bson.M{"$toDate": "$_id"},
			}}}},
		},
	}

	var changed int64
	for _, step := range steps {
		res, err := s.col.UpdateMany(ctx, step.filter, step.update)
		if err != nil {
			return changed, wrapDriverErr(ctx, "posts: migrate legacy", err)
		}
		changed += res.ModifiedCount
	}
	return changed, nil
}
