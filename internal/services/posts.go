package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/store"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

const missingPostFields = "title, description, animalType and image are required"

// NewPost is the input of PostService.Create.
type NewPost struct {
	Title       string
	Description string
	AnimalType  string
	Image       []byte
}

// PostUpdate lists the editable fields; nil means unchanged.
type PostUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AnimalType  *string `json:"animalType"`
}

// PostService runs the listing lifecycle. Every mutation checks ownership
// against the stored post and publishes a PostEvent on success.
type PostService struct {
	posts  store.PostStore
	images ImageStore
	events *EventHub
	log    logging.Logger
	now    func() time.Time
}

func NewPostService(posts store.PostStore, images ImageStore, events *EventHub, log logging.Logger) *PostService {
	if images == nil {
		images = InlineImages{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &PostService{posts: posts, images: images, events: events, log: log, now: time.Now}
}

// ParsePostID turns a hex id into an ObjectID, or ErrInvalidPostID.
func ParsePostID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidPostID
	}
	return id, nil
}

// Create stores a new active listing owned by actor.
func (s *PostService) Create(ctx context.Context, actor *models.User, in NewPost) (*models.Post, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	imageMarker := ""
	if len(in.Image) > 0 {
		imageMarker = "present"
	}
	if err := utils.RequireFields(missingPostFields,
		"title", in.Title,
		"description", in.Description,
		"animalType", in.AnimalType,
		"image", imageMarker,
	); err != nil {
		return nil, err
	}
	if err := ValidateImage(in.Image); err != nil {
		return nil, err
	}

	img, err := s.images.Store(ctx, in.Image)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	now := s.now().UTC()
	post := &models.Post{
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		AnimalType:  strings.TrimSpace(in.AnimalType),
		Image:       img.Inline,
		ImageURL:    img.URL,
		Username:    actor.Username,
		PhoneNumber: actor.PhoneNumber,
		Status:      models.PostStatusActive,
	}
	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	s.publish(ctx, PostCreated, post, actor.Username)
	return post, nil
}

func (s *PostService) Get(ctx context.Context, hexID string) (*models.Post, error) {
	id, err := ParsePostID(hexID)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *PostService) ListAvailable(ctx context.Context, limit, skip int64) ([]models.Post, error) {
	return s.list(ctx, models.PostFilter{Status: models.PostStatusActive, Limit: limit, Skip: skip})
}

func (s *PostService) ListAdopted(ctx context.Context, limit, skip int64) ([]models.Post, error) {
	return s.list(ctx, models.PostFilter{Status: models.PostStatusAdopted, Limit: limit, Skip: skip})
}

// ListByOwner returns every post of username regardless of status.
func (s *PostService) ListByOwner(ctx context.Context, username string, limit, skip int64) ([]models.Post, error) {
	return s.list(ctx, models.PostFilter{Username: username, Limit: limit, Skip: skip})
}

func (s *PostService) Update(ctx context.Context, actor *models.User, hexID string, upd PostUpdate) (*models.Post, error) {
	post, err := s.loadOwned(ctx, actor, hexID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, &utils.ValidationError{Field: "title", Message: "title cannot be empty"}
		}
		post.Title = title
	}
	if upd.Description != nil {
		post.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.AnimalType != nil {
		animalType := strings.TrimSpace(*upd.AnimalType)
		if animalType == "" {
			return nil, &utils.ValidationError{Field: "animalType", Message: "animalType cannot be empty"}
		}
		post.AnimalType = animalType
	}
	post.UpdatedAt = s.now().UTC()

	if err := s.replace(ctx, post); err != nil {
		return nil, err
	}
	s.publish(ctx, PostUpdated, post, actor.Username)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actor *models.User, hexID string) error {
	post, err := s.loadOwned(ctx, actor, hexID)
	if err != nil {
		return err
	}

	err = s.posts.Delete(ctx, post.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.log.Info(ctx, "post deleted", "post_id", post.ID.Hex(), "actor", actor.Username)
	s.publish(ctx, PostDeleted, post, actor.Username)
	return nil
}

// Adopt moves an active post to adopted. Adopting twice is a conflict.
func (s *PostService) Adopt(ctx context.Context, actor *models.User, hexID string) (*models.Post, error) {
	post, err := s.loadOwned(ctx, actor, hexID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusAdopted {
		return nil, ErrAlreadyAdopted
	}

	now := s.now().UTC()
	post.Status = models.PostStatusAdopted
	post.AdoptedAt = &now
	post.AdoptedBy = actor.Username
	post.UpdatedAt = now

	if err := s.replace(ctx, post); err != nil {
		return nil, err
	}
	s.publish(ctx, PostAdopted, post, actor.Username)
	return post, nil
}

// Reactivate moves an adopted post back to active and clears the adoption
// fields. Reactivating an active post changes nothing.
func (s *PostService) Reactivate(ctx context.Context, actor *models.User, hexID string) (*models.Post, error) {
	post, err := s.loadOwned(ctx, actor, hexID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusActive {
		return post, nil
	}

	post.Status = models.PostStatusActive
	post.AdoptedAt = nil
	post.AdoptedBy = ""
	post.UpdatedAt = s.now().UTC()

	if err := s.replace(ctx, post); err != nil {
		return nil, err
	}
	s.publish(ctx, PostReactivated, post, actor.Username)
	return post, nil
}

// loadOwned resolves the post first so a missing id is 404 for everyone,
// then applies the ownership policy.
func (s *PostService) loadOwned(ctx context.Context, actor *models.User, hexID string) (*models.Post, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	post, err := s.Get(ctx, hexID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(actor, post.Username); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) find(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

func (s *PostService) list(ctx context.Context, filter models.PostFilter) ([]models.Post, error) {
	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) replace(ctx context.Context, post *models.Post) error {
	err := s.posts.Replace(ctx, post)
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("save post: %w", err)
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, typ PostEventType, post *models.Post, actor string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, newPostEvent(typ, post, actor)); err != nil {
		s.log.Warn(ctx, "post event not published", "type", string(typ), "post_id", post.ID.Hex(), "error", err)
	}
}
