package repositories

import (
	"context"

	"cms/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleRepository defines the interface for article data access.
type ArticleRepository interface {
	// List returns a page of articles sorted by createdAt descending.
	List(ctx context.Context, skip, limit int64) ([]models.ArticleDocument, error)
	// Count returns the total number of articles.
	Count(ctx context.Context) (int64, error)
	// ListByAuthor returns a page of one author's articles, newest first.
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]models.ArticleDocument, error)
	// CountByAuthor returns the number of articles owned by authorID.
	CountByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error)
	// GetByID returns the full article document, or mongo.ErrNoDocuments.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleDocument, error)
	// GetAuthorID loads only the authorId field of an article. Used for
	// ownership checks so full documents are never fetched just to
	// authorize a mutation.
	GetAuthorID(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error)
	// Create inserts a new article and fills in its generated ID.
	Create(ctx context.Context, article *models.ArticleDocument) error
	// UpdateFields applies a partial $set update to one article.
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
	// Delete permanently removes an article.
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SearchText matches articles against query using the full-text
	// index, falling back to a case-insensitive substring scan on
	// title+content when the text index is unavailable. escaped is the
	// regex-escaped form of query used by the fallback.
	SearchText(ctx context.Context, query, escaped string, limit int64) ([]models.ArticleDocument, error)
	// ListByAuthorIDs returns articles whose authorId is in ids, newest first.
	ListByAuthorIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.ArticleDocument, error)
	// CountPerAuthor groups all articles by authorId and returns the
	// article count per author.
	CountPerAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error)
}
