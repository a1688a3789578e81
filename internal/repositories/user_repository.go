package repositories

import (
	"context"

	"cms/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create inserts a new user and fills in its generated ID.
	Create(ctx context.Context, user *models.User) error
	// GetByEmail returns the user with the given email, or mongo.ErrNoDocuments.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns the user with the given ID, or mongo.ErrNoDocuments.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// ListByIDs returns a name/email projection for each of the given
	// user IDs. IDs without a matching user are simply absent from the
	// result.
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error)
	// FindIDsByNameContains returns the IDs of users whose name contains
	// the given regex-escaped pattern, case-insensitively.
	FindIDsByNameContains(ctx context.Context, escapedPattern string) ([]primitive.ObjectID, error)
}
