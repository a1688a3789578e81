package repositories

import (
	"context"
	"fmt"

	"cms/internal/database"
	"cms/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoArticleRepository is a MongoDB implementation of ArticleRepository.
type MongoArticleRepository struct {
	collection *mongo.Collection
}

// NewMongoArticleRepository creates a new instance of MongoArticleRepository.
func NewMongoArticleRepository(db *database.DB) *MongoArticleRepository {
	return &MongoArticleRepository{
		collection: db.ArticlesCollection(),
	}
}

// newestFirst sorts by createdAt descending; backed by the createdAt index.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// List returns a page of articles sorted by createdAt descending.
func (r *MongoArticleRepository) List(ctx context.Context, skip, limit int64) ([]models.ArticleDocument, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(skip).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	var docs []models.ArticleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}
	return docs, nil
}

// Count returns the total number of articles.
func (r *MongoArticleRepository) Count(ctx context.Context) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, nil
}

// ListByAuthor returns a page of one author's articles, newest first.
func (r *MongoArticleRepository) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]models.ArticleDocument, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(skip).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"authorId": authorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles for author %s: %w", authorID.Hex(), err)
	}
	var docs []models.ArticleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode author articles: %w", err)
	}
	return docs, nil
}

// CountByAuthor returns the number of articles owned by authorID.
func (r *MongoArticleRepository) CountByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{"authorId": authorID})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles for author %s: %w", authorID.Hex(), err)
	}
	return total, nil
}

// GetByID returns the full article document.
func (r *MongoArticleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleDocument, error) {
	var doc models.ArticleDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id.Hex(), err)
	}
	return &doc, nil
}

// GetAuthorID loads only the authorId field of an article.
func (r *MongoArticleRepository) GetAuthorID(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
	var doc struct {
		AuthorID primitive.ObjectID `bson:"authorId"`
	}
	opts := options.FindOne().SetProjection(bson.M{"authorId": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return primitive.NilObjectID, err
		}
		return primitive.NilObjectID, fmt.Errorf("failed to load author of article %s: %w", id.Hex(), err)
	}
	return doc.AuthorID, nil
}

// Create inserts a new article and fills in its generated ID.
func (r *MongoArticleRepository) Create(ctx context.Context, article *models.ArticleDocument) error {
	if article.ID.IsZero() {
		article.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, article); err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

// UpdateFields applies a partial $set update to one article.
func (r *MongoArticleRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete permanently removes an article.
func (r *MongoArticleRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SearchText matches articles against query using the full-text index.
// When the text query fails (typically because the index is missing) it
// falls back to a case-insensitive substring scan on title and content
// instead of surfacing an error.
func (r *MongoArticleRepository) SearchText(ctx context.Context, query, escaped string, limit int64) ([]models.ArticleDocument, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(limit)

	docs, err := r.findAll(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	if err == nil {
		return docs, nil
	}

	regex := bson.M{"$regex": escaped, "$options": "i"}
	docs, err = r.findAll(ctx, bson.M{"$or": bson.A{
		bson.M{"title": regex},
		bson.M{"content": regex},
	}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	return docs, nil
}

// ListByAuthorIDs returns articles whose authorId is in ids, newest first.
func (r *MongoArticleRepository) ListByAuthorIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.ArticleDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(newestFirst).SetLimit(limit)
	docs, err := r.findAll(ctx, bson.M{"authorId": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by authors: %w", err)
	}
	return docs, nil
}

// CountPerAuthor groups all articles by authorId and counts each group.
func (r *MongoArticleRepository) CountPerAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$authorId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate article counts: %w", err)
	}
	var groups []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode article counts: %w", err)
	}
	counts := make(map[primitive.ObjectID]int64, len(groups))
	for _, g := range groups {
		counts[g.ID] = g.Count
	}
	return counts, nil
}

func (r *MongoArticleRepository) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.ArticleDocument, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []models.ArticleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
