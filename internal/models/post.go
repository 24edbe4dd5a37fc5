package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStatus string

const (
	PostStatusActive  PostStatus = "active"
	PostStatusAdopted PostStatus = "adopted"
)

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	AnimalType  string `bson:"animal_type" json:"animalType"`

	// Image is the base64 payload; ImageURL is set instead when images go to Cloudinary.
	Image    string `bson:"image,omitempty" json:"image,omitempty"`
	ImageURL string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	// Owner, copied from the author at creation time.
	Username    string `bson:"username" json:"username"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`

	Status    PostStatus `bson:"status" json:"status"`
	AdoptedAt *time.Time `bson:"adopted_at,omitempty" json:"adopted_at,omitempty"`
	AdoptedBy string     `bson:"adopted_by,omitempty" json:"adopted_by,omitempty"`
}

// PostFilter selects posts for listing. Zero values mean "any".
type PostFilter struct {
	Status   PostStatus
	Username string
	Limit    int64
	Skip     int64
}
