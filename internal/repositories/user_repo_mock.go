package repositories

import (
	"context"
	"regexp"
	"sync"

	"cms/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[primitive.ObjectID]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[primitive.ObjectID]models.User),
	}
}

// Create inserts a new user. A duplicate email returns the same write
// error shape the Mongo unique index produces, so callers can keep using
// mongo.IsDuplicateKeyError.
func (r *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}

// GetByEmail returns the user with the given email.
func (r *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// GetByID returns the user with the given ID.
func (r *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &user, nil
}

// ListByIDs returns a name/email projection for each of the given IDs.
func (r *MockUserRepository) ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	authors := make(map[primitive.ObjectID]models.AuthorInfo, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			authors[id] = models.AuthorInfo{Name: user.Name, Email: user.Email}
		}
	}
	return authors, nil
}

// FindIDsByNameContains returns the IDs of users whose name contains the
// given regex-escaped pattern, case-insensitively.
func (r *MockUserRepository) FindIDsByNameContains(ctx context.Context, escapedPattern string) ([]primitive.ObjectID, error) {
	pattern, err := regexp.Compile("(?i)" + escapedPattern)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []primitive.ObjectID
	for id, user := range r.users {
		if pattern.MatchString(user.Name) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
