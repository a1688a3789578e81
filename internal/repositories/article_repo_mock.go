package repositories

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"cms/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockArticleRepository is an in-memory implementation of ArticleRepository.
// It mirrors the Mongo implementation's sorting and not-found semantics so
// services and handlers can be exercised without a running database.
type MockArticleRepository struct {
	articles map[primitive.ObjectID]models.ArticleDocument
	mu       sync.RWMutex
}

// NewMockArticleRepository creates a new instance of MockArticleRepository.
func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		articles: make(map[primitive.ObjectID]models.ArticleDocument),
	}
}

// sortedNewestFirst returns all articles matching keep, newest first.
func (r *MockArticleRepository) sortedNewestFirst(keep func(models.ArticleDocument) bool) []models.ArticleDocument {
	docs := make([]models.ArticleDocument, 0, len(r.articles))
	for _, doc := range r.articles {
		if keep == nil || keep(doc) {
			docs = append(docs, doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

func paginate(docs []models.ArticleDocument, skip, limit int64) []models.ArticleDocument {
	if skip >= int64(len(docs)) {
		return []models.ArticleDocument{}
	}
	docs = docs[skip:]
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

// List returns a page of articles sorted by createdAt descending.
func (r *MockArticleRepository) List(ctx context.Context, skip, limit int64) ([]models.ArticleDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return paginate(r.sortedNewestFirst(nil), skip, limit), nil
}

// Count returns the total number of articles.
func (r *MockArticleRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.articles)), nil
}

// ListByAuthor returns a page of one author's articles, newest first.
func (r *MockArticleRepository) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]models.ArticleDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.sortedNewestFirst(func(doc models.ArticleDocument) bool {
		return doc.AuthorID == authorID
	})
	return paginate(docs, skip, limit), nil
}

// CountByAuthor returns the number of articles owned by authorID.
func (r *MockArticleRepository) CountByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, doc := range r.articles {
		if doc.AuthorID == authorID {
			total++
		}
	}
	return total, nil
}

// GetByID returns the full article document.
func (r *MockArticleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.articles[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &doc, nil
}

// GetAuthorID loads only the authorId field of an article.
func (r *MockArticleRepository) GetAuthorID(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.articles[id]
	if !ok {
		return primitive.NilObjectID, mongo.ErrNoDocuments
	}
	return doc.AuthorID, nil
}

// Create inserts a new article and fills in its generated ID.
func (r *MockArticleRepository) Create(ctx context.Context, article *models.ArticleDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if article.ID.IsZero() {
		article.ID = primitive.NewObjectID()
	}
	r.articles[article.ID] = *article
	return nil
}

// UpdateFields applies a partial update to one article.
func (r *MockArticleRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.articles[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for key, value := range fields {
		switch key {
		case "title":
			if v, ok := value.(string); ok {
				doc.Title = v
			}
		case "content":
			if v, ok := value.(string); ok {
				doc.Content = v
			}
		case "coverImage":
			if v, ok := value.(string); ok {
				doc.CoverImage = v
			}
		case "updatedAt":
			if v, ok := value.(time.Time); ok {
				doc.UpdatedAt = v
			}
		}
	}
	r.articles[id] = doc
	return nil
}

// Delete permanently removes an article.
func (r *MockArticleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.articles, id)
	return nil
}

// SearchText performs a case-insensitive substring scan over title and
// content, matching the Mongo implementation's fallback path.
func (r *MockArticleRepository) SearchText(ctx context.Context, query, escaped string, limit int64) ([]models.ArticleDocument, error) {
	pattern, err := regexp.Compile("(?i)" + escaped)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.sortedNewestFirst(func(doc models.ArticleDocument) bool {
		return pattern.MatchString(doc.Title) || pattern.MatchString(doc.Content)
	})
	return paginate(docs, 0, limit), nil
}

// ListByAuthorIDs returns articles whose authorId is in ids, newest first.
func (r *MockArticleRepository) ListByAuthorIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.ArticleDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	wanted := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.sortedNewestFirst(func(doc models.ArticleDocument) bool {
		return wanted[doc.AuthorID]
	})
	return paginate(docs, 0, limit), nil
}

// CountPerAuthor groups all articles by authorId and counts each group.
func (r *MockArticleRepository) CountPerAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[primitive.ObjectID]int64)
	for _, doc := range r.articles {
		counts[doc.AuthorID]++
	}
	return counts, nil
}
