package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered author of the CMS.
type User struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email         string             `json:"email" bson:"email" validate:"required,email"`
	Name          string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Password      string             `json:"-" bson:"password" validate:"required,min=6"` // bcrypt hash, never serialized
	EmailVerified bool               `json:"email_verified" bson:"emailVerified"`
	CreatedAt     time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updatedAt"`
}

// AuthorInfo is the name/email projection used when denormalizing
// author details onto article views.
type AuthorInfo struct {
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

// AuthUser is the identity carried by a validated session token.
type AuthUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthorWithCount is the derived "browse by author" view: a user joined
// with the number of articles they have published.
type AuthorWithCount struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	ArticleCount int64  `json:"article_count"`
}
