package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/store"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

var (
	bob   = &models.User{Username: "bob", PhoneNumber: "555-0101"}
	carol = &models.User{Username: "carol", PhoneNumber: "555-0102"}
	admin = &models.User{Username: "root", IsAdmin: true}
)

func newTestPostService(t *testing.T) (*PostService, *Subscription) {
	t.Helper()
	hub := NewEventHub(nil, nil)
	sub := hub.Subscribe(64)
	t.Cleanup(sub.Close)
	return NewPostService(store.NewMemory().Posts(), InlineImages{}, hub, nil), sub
}

func createRex(t *testing.T, svc *PostService) *models.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), bob, NewPost{
		Title:       "Rex",
		Description: "friendly mutt",
		AnimalType:  "dog",
		Image:       pngBytes,
	})
	require.NoError(t, err)
	return p
}

func nextEvent(t *testing.T, sub *Subscription) PostEvent {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return PostEvent{}
	}
}

func TestPostService_Create(t *testing.T) {
	svc, sub := newTestPostService(t)
	p := createRex(t, svc)

	assert.False(t, p.ID.IsZero())
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, "555-0101", p.PhoneNumber)
	assert.Equal(t, models.PostStatusActive, p.Status)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), p.Image)
	assert.Nil(t, p.AdoptedAt)

	ev := nextEvent(t, sub)
	assert.Equal(t, PostCreated, ev.Type)
	assert.Equal(t, p.ID.Hex(), ev.PostID)
	assert.Equal(t, "bob", ev.Actor)
	require.NotNil(t, ev.Post)
	assert.Empty(t, ev.Post.Image, "events carry no inline image")
}

func TestPostService_CreateValidation(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()

	cases := map[string]NewPost{
		"no title":       {Description: "d", AnimalType: "dog", Image: pngBytes},
		"no description": {Title: "t", AnimalType: "dog", Image: pngBytes},
		"no animal type": {Title: "t", Description: "d", Image: pngBytes},
		"no image":       {Title: "t", Description: "d", AnimalType: "dog"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, bob, in)
			require.Error(t, err)
			assert.Equal(t, 400, apperr.HTTPStatus(err))
			assert.Equal(t, missingPostFields, apperr.PublicMessage(err))
		})
	}

	_, err := svc.Create(ctx, bob, NewPost{Title: "t", Description: "d", AnimalType: "dog", Image: []byte("plain text")})
	assert.Equal(t, 400, apperr.HTTPStatus(err))
	assert.Equal(t, "image must be an image file", apperr.PublicMessage(err))

	_, err = svc.Create(ctx, nil, NewPost{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestPostService_Get(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()
	p := createRex(t, svc)

	got, err := svc.Get(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Title)

	_, err = svc.Get(ctx, "not-hex")
	assert.ErrorIs(t, err, ErrInvalidPostID)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	_, err = svc.Get(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestPostService_Update(t *testing.T) {
	svc, sub := newTestPostService(t)
	ctx := context.Background()
	p := createRex(t, svc)
	nextEvent(t, sub)

	title := "Rex II"
	_, err := svc.Update(ctx, carol, p.ID.Hex(), PostUpdate{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := svc.Update(ctx, bob, p.ID.Hex(), PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Rex II", updated.Title)
	assert.Equal(t, "friendly mutt", updated.Description)
	assert.Equal(t, "bob", updated.Username, "owner is immutable")
	assert.Equal(t, PostUpdated, nextEvent(t, sub).Type)

	blank := "  "
	_, err = svc.Update(ctx, bob, p.ID.Hex(), PostUpdate{Title: &blank})
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	cat := "cat"
	byAdmin, err := svc.Update(ctx, admin, p.ID.Hex(), PostUpdate{AnimalType: &cat})
	require.NoError(t, err)
	assert.Equal(t, "cat", byAdmin.AnimalType)
	assert.Equal(t, "bob", byAdmin.Username)
}

func TestPostService_AdoptReactivateRoundTrip(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()
	p := createRex(t, svc)

	_, err := svc.Adopt(ctx, carol, p.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	adopted, err := svc.Adopt(ctx, bob, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusAdopted, adopted.Status)
	require.NotNil(t, adopted.AdoptedAt)
	assert.Equal(t, "bob", adopted.AdoptedBy)

	available, err := svc.ListAvailable(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, available)
	adoptedList, err := svc.ListAdopted(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, adoptedList, 1)

	_, err = svc.Adopt(ctx, bob, p.ID.Hex())
	assert.ErrorIs(t, err, ErrAlreadyAdopted)
	assert.Equal(t, 409, apperr.HTTPStatus(err))

	active, err := svc.Reactivate(ctx, bob, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusActive, active.Status)
	assert.Nil(t, active.AdoptedAt)
	assert.Empty(t, active.AdoptedBy)

	again, err := svc.Reactivate(ctx, bob, p.ID.Hex())
	require.NoError(t, err)

	// Apart from the update stamp it matches the never-adopted post.
	want := *p
	want.UpdatedAt = again.UpdatedAt
	assert.Equal(t, want, *again)

	available, err = svc.ListAvailable(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestPostService_Delete(t *testing.T) {
	svc, sub := newTestPostService(t)
	ctx := context.Background()
	p := createRex(t, svc)
	nextEvent(t, sub)

	err := svc.Delete(ctx, carol, p.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, bob, p.ID.Hex()))
	ev := nextEvent(t, sub)
	assert.Equal(t, PostDeleted, ev.Type)
	assert.Nil(t, ev.Post)

	_, err = svc.Get(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)

	// A missing post is 404 for everyone, owner or not.
	err = svc.Delete(ctx, carol, p.ID.Hex())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostService_ListByOwner(t *testing.T) {
	svc, _ := newTestPostService(t)
	ctx := context.Background()
	p := createRex(t, svc)
	_, err := svc.Create(ctx, carol, NewPost{Title: "Mia", Description: "calm", AnimalType: "cat", Image: pngBytes})
	require.NoError(t, err)
	_, err = svc.Adopt(ctx, bob, p.ID.Hex())
	require.NoError(t, err)

	mine, err := svc.ListByOwner(ctx, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)
	assert.Equal(t, models.PostStatusAdopted, mine[0].Status)
}
