package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sort"
	"time"

	"cms/internal/apperrors"
	"cms/internal/models"
	"cms/internal/repositories"
	"cms/pkg/rabbitmq"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// excerptMaxLength caps article content in list and search views.
const excerptMaxLength = 150

// Default page sizes for the public listing and the owner dashboard.
const (
	DefaultPageSize    = 6
	DefaultMyPageSize  = 10
	DefaultSearchLimit = 50
)

// ArticleService handles article queries, ownership-gated mutations and
// the authors aggregate.
type ArticleService struct {
	articleRepo repositories.ArticleRepository
	userRepo    repositories.UserRepository
	mqClient    *rabbitmq.Client // optional, nil disables event publishing
}

// NewArticleService creates a new ArticleService. mqClient may be nil when
// no broker is configured; mutations then skip event publishing.
func NewArticleService(articleRepo repositories.ArticleRepository, userRepo repositories.UserRepository, mqClient *rabbitmq.Client) *ArticleService {
	return &ArticleService{
		articleRepo: articleRepo,
		userRepo:    userRepo,
		mqClient:    mqClient,
	}
}

// truncate shortens content to the excerpt length in characters, not
// bytes, so multi-byte content is never cut mid-rune. An ellipsis marks
// anything that was dropped.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptMaxLength {
		return text
	}
	return string(runes[:excerptMaxLength]) + "..."
}

// mapToArticle builds the public view of an article. A missing author
// degrades to {"Unknown", ""} rather than failing the whole listing.
func mapToArticle(doc models.ArticleDocument, author models.AuthorInfo, found, excerptOnly bool) models.Article {
	content := doc.Content
	if excerptOnly {
		content = truncate(content)
	}
	name, email := "Unknown", ""
	if found {
		name, email = author.Name, author.Email
	}
	return models.Article{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Content:     content,
		CoverImage:  doc.CoverImage,
		AuthorID:    doc.AuthorID.Hex(),
		AuthorName:  name,
		AuthorEmail: email,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

// mapToMyArticle builds the owner view of an article.
func mapToMyArticle(doc models.ArticleDocument, excerptOnly bool) models.MyArticle {
	content := doc.Content
	if excerptOnly {
		content = truncate(content)
	}
	return models.MyArticle{
		ID:         doc.ID.Hex(),
		Title:      doc.Title,
		Content:    content,
		CoverImage: doc.CoverImage,
		AuthorID:   doc.AuthorID.Hex(),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// resolveAuthors batches the author lookups for a set of article documents
// into a single query, avoiding an N+1 pattern when listing.
func (s *ArticleService) resolveAuthors(ctx context.Context, docs []models.ArticleDocument) (map[primitive.ObjectID]models.AuthorInfo, error) {
	seen := make(map[primitive.ObjectID]bool, len(docs))
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		if !seen[doc.AuthorID] {
			seen[doc.AuthorID] = true
			ids = append(ids, doc.AuthorID)
		}
	}
	authors, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("could not resolve article authors", err)
	}
	return authors, nil
}

// toArticleViews maps documents to excerpted public views with resolved
// author details.
func (s *ArticleService) toArticleViews(ctx context.Context, docs []models.ArticleDocument) ([]models.Article, error) {
	authors, err := s.resolveAuthors(ctx, docs)
	if err != nil {
		return nil, err
	}
	items := make([]models.Article, 0, len(docs))
	for _, doc := range docs {
		author, found := authors[doc.AuthorID]
		items = append(items, mapToArticle(doc, author, found, true))
	}
	return items, nil
}

// totalPages computes ceil(total/limit).
func totalPages(total, limit int64) int {
	return int((total + limit - 1) / limit)
}

// ListAll returns a page of published articles, newest first, with
// excerpted content. page defaults to 1 and limit to DefaultPageSize when
// zero; bounds are enforced by the caller's input validation.
func (s *ArticleService) ListAll(ctx context.Context, page, limit int) (*models.PaginatedArticles, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}

	skip := int64(page-1) * int64(limit)
	docs, err := s.articleRepo.List(ctx, skip, int64(limit))
	if err != nil {
		return nil, apperrors.Internal("could not list articles", err)
	}
	total, err := s.articleRepo.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal("could not count articles", err)
	}

	items, err := s.toArticleViews(ctx, docs)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedArticles{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, int64(limit)),
	}, nil
}

// GetByID returns the full article with denormalized author details.
// A malformed or unknown id yields a not-found error.
func (s *ArticleService) GetByID(ctx context.Context, id string) (*models.Article, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound("article not found")
	}

	doc, err := s.articleRepo.GetByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("article not found")
		}
		return nil, apperrors.Internal("could not load article", err)
	}

	authors, err := s.userRepo.ListByIDs(ctx, []primitive.ObjectID{doc.AuthorID})
	if err != nil {
		return nil, apperrors.Internal("could not resolve article author", err)
	}
	author, found := authors[doc.AuthorID]
	article := mapToArticle(*doc, author, found, false)
	return &article, nil
}

// Search returns the deduplicated union of articles whose title/content
// match the query and articles written by an author whose name contains
// the query, newest first, capped at limit.
func (s *ArticleService) Search(ctx context.Context, query string, limit int) ([]models.Article, error) {
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	escaped := regexp.QuoteMeta(query)

	authorIDs, err := s.userRepo.FindIDsByNameContains(ctx, escaped)
	if err != nil {
		return nil, apperrors.Internal("could not match authors", err)
	}

	textDocs, err := s.articleRepo.SearchText(ctx, query, escaped, int64(limit))
	if err != nil {
		return nil, apperrors.Internal("could not search articles", err)
	}

	authorDocs, err := s.articleRepo.ListByAuthorIDs(ctx, authorIDs, int64(limit))
	if err != nil {
		return nil, apperrors.Internal("could not search articles by author", err)
	}

	// Merge both phases, keeping one document per id.
	merged := make([]models.ArticleDocument, 0, len(textDocs)+len(authorDocs))
	seen := make(map[primitive.ObjectID]bool)
	for _, doc := range append(textDocs, authorDocs...) {
		if !seen[doc.ID] {
			seen[doc.ID] = true
			merged = append(merged, doc)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return s.toArticleViews(ctx, merged)
}

// ListMine returns a page of the caller's own articles as owner views.
func (s *ArticleService) ListMine(ctx context.Context, callerID string, page, limit int) (*models.PaginatedMyArticles, error) {
	authorID, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session identity")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultMyPageSize
	}

	skip := int64(page-1) * int64(limit)
	docs, err := s.articleRepo.ListByAuthor(ctx, authorID, skip, int64(limit))
	if err != nil {
		return nil, apperrors.Internal("could not list your articles", err)
	}
	total, err := s.articleRepo.CountByAuthor(ctx, authorID)
	if err != nil {
		return nil, apperrors.Internal("could not count your articles", err)
	}

	items := make([]models.MyArticle, 0, len(docs))
	for _, doc := range docs {
		items = append(items, mapToMyArticle(doc, true))
	}

	return &models.PaginatedMyArticles{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, int64(limit)),
	}, nil
}

// Create inserts a new article owned by the caller and returns its owner
// view. Field constraints are validated by the caller before this point.
func (s *ArticleService) Create(ctx context.Context, callerID string, input models.CreateArticleInput) (*models.MyArticle, error) {
	authorID, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session identity")
	}

	now := time.Now().UTC()
	doc := models.ArticleDocument{
		Title:      input.Title,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		AuthorID:   authorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.articleRepo.Create(ctx, &doc); err != nil {
		return nil, apperrors.Internal("could not create article", err)
	}

	s.publishEvent(rabbitmq.EventArticleCreated, doc.ID.Hex(), callerID)

	article := mapToMyArticle(doc, false)
	return &article, nil
}

// Update applies a partial update to an article the caller owns and
// refreshes updatedAt. Absent fields are left untouched.
func (s *ArticleService) Update(ctx context.Context, callerID, id string, input models.UpdateArticleInput) error {
	objectID, err := s.authorizeMutation(ctx, callerID, id)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"updatedAt": time.Now().UTC(),
	}
	if input.Title != nil {
		fields["title"] = *input.Title
	}
	if input.Content != nil {
		fields["content"] = *input.Content
	}
	if input.CoverImage != nil {
		fields["coverImage"] = *input.CoverImage
	}

	if err := s.articleRepo.UpdateFields(ctx, objectID, fields); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.NotFound("article not found")
		}
		return apperrors.Internal("could not update article", err)
	}

	s.publishEvent(rabbitmq.EventArticleUpdated, id, callerID)
	return nil
}

// Delete permanently removes an article the caller owns.
func (s *ArticleService) Delete(ctx context.Context, callerID, id string) error {
	objectID, err := s.authorizeMutation(ctx, callerID, id)
	if err != nil {
		return err
	}

	if err := s.articleRepo.Delete(ctx, objectID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.NotFound("article not found")
		}
		return apperrors.Internal("could not delete article", err)
	}

	s.publishEvent(rabbitmq.EventArticleDeleted, id, callerID)
	return nil
}

// authorizeMutation loads only the article's authorId and checks it
// against the caller. Missing article yields not-found, foreign ownership
// yields forbidden.
func (s *ArticleService) authorizeMutation(ctx context.Context, callerID, id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.NotFound("article not found")
	}

	authorID, err := s.articleRepo.GetAuthorID(ctx, objectID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return primitive.NilObjectID, apperrors.NotFound("article not found")
		}
		return primitive.NilObjectID, apperrors.Internal("could not load article owner", err)
	}
	if authorID.Hex() != callerID {
		return primitive.NilObjectID, apperrors.Forbidden("you can only modify your own articles")
	}
	return objectID, nil
}

// ListAuthors returns every user with at least one article, joined with
// their article count and sorted by count descending.
func (s *ArticleService) ListAuthors(ctx context.Context) ([]models.AuthorWithCount, error) {
	counts, err := s.articleRepo.CountPerAuthor(ctx)
	if err != nil {
		return nil, apperrors.Internal("could not aggregate authors", err)
	}

	ids := make([]primitive.ObjectID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("could not load authors", err)
	}

	authors := make([]models.AuthorWithCount, 0, len(users))
	for id, info := range users {
		authors = append(authors, models.AuthorWithCount{
			ID:           id.Hex(),
			Name:         info.Name,
			Email:        info.Email,
			ArticleCount: counts[id],
		})
	}
	sort.SliceStable(authors, func(i, j int) bool {
		return authors[i].ArticleCount > authors[j].ArticleCount
	})
	return authors, nil
}

// publishEvent sends an article lifecycle event to RabbitMQ. Publishing is
// best-effort: a broker failure must not fail the mutation that already
// committed.
func (s *ArticleService) publishEvent(eventType, articleID, authorID string) {
	if s.mqClient == nil {
		return
	}
	event := rabbitmq.NewArticleEvent(eventType, articleID, authorID)
	if err := s.mqClient.PublishArticleEvent(event); err != nil {
		log.Printf("Failed to publish %s event for article %s: %v", eventType, articleID, err)
	}
}
