package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleDocument is the article as stored in MongoDB.
type ArticleDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Title      string             `bson:"title"`
	Content    string             `bson:"content"`
	CoverImage string             `bson:"coverImage"`
	AuthorID   primitive.ObjectID `bson:"authorId"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

// Article is the public view of an article with denormalized author details.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CoverImage  string    `json:"cover_image"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MyArticle is the owner's view of an article. The caller is the author,
// so no author details are denormalized onto it.
type MyArticle struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CoverImage string    `json:"cover_image"`
	AuthorID   string    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PaginatedArticles is a page of public article views.
type PaginatedArticles struct {
	Items      []Article `json:"items"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// PaginatedMyArticles is a page of owner article views.
type PaginatedMyArticles struct {
	Items      []MyArticle `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}

// CreateArticleInput carries the fields for creating an article.
// CoverImage must be a URL ending in a known image extension; the
// "imageurl" rule is registered by the handlers package.
type CreateArticleInput struct {
	Title      string `json:"title" validate:"required,min=3,max=200"`
	Content    string `json:"content" validate:"required,min=10,max=50000"`
	CoverImage string `json:"cover_image" validate:"required,url,imageurl"`
}

// UpdateArticleInput carries a partial update. Nil fields are left
// untouched; set fields fully replace the stored value.
type UpdateArticleInput struct {
	Title      *string `json:"title" validate:"omitempty,min=3,max=200"`
	Content    *string `json:"content" validate:"omitempty,min=10,max=50000"`
	CoverImage *string `json:"cover_image" validate:"omitempty,url,imageurl"`
}
