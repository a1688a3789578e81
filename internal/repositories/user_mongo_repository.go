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

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of MongoUserRepository.
func NewMongoUserRepository(db *database.DB) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.UsersCollection(),
	}
}

// Create inserts a new user and fills in its generated ID.
// A duplicate email surfaces as a mongo write error carrying code 11000;
// callers detect it with mongo.IsDuplicateKeyError.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail returns the user with the given email.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByID returns the user with the given ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id.Hex(), err)
	}
	return &user, nil
}

// ListByIDs returns a name/email projection for each of the given IDs.
func (r *MongoUserRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error) {
	if len(ids) == 0 {
		return map[primitive.ObjectID]models.AuthorInfo{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by IDs: %w", err)
	}

	var docs []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Email string             `bson:"email"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	authors := make(map[primitive.ObjectID]models.AuthorInfo, len(docs))
	for _, doc := range docs {
		authors[doc.ID] = models.AuthorInfo{Name: doc.Name, Email: doc.Email}
	}
	return authors, nil
}

// FindIDsByNameContains returns the IDs of users whose name contains the
// given regex-escaped pattern, case-insensitively.
func (r *MongoUserRepository) FindIDsByNameContains(ctx context.Context, escapedPattern string) ([]primitive.ObjectID, error) {
	filter := bson.M{"name": bson.M{"$regex": escapedPattern, "$options": "i"}}
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by name: %w", err)
	}

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode user IDs: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
