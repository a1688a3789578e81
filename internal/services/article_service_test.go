package services_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cms/internal/apperrors"
	"cms/internal/models"
	"cms/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockArticleRepo is a mock implementation of repositories.ArticleRepository
type MockArticleRepo struct {
	mock.Mock
}

func (m *MockArticleRepo) List(ctx context.Context, skip, limit int64) ([]models.ArticleDocument, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ArticleDocument), args.Error(1)
}

func (m *MockArticleRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArticleRepo) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]models.ArticleDocument, error) {
	args := m.Called(ctx, authorID, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ArticleDocument), args.Error(1)
}

func (m *MockArticleRepo) CountByAuthor(ctx context.Context, authorID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockArticleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArticleDocument), args.Error(1)
}

func (m *MockArticleRepo) GetAuthorID(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockArticleRepo) Create(ctx context.Context, article *models.ArticleDocument) error {
	args := m.Called(ctx, article)
	if article.ID.IsZero() {
		article.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockArticleRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockArticleRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockArticleRepo) SearchText(ctx context.Context, query, escaped string, limit int64) ([]models.ArticleDocument, error) {
	args := m.Called(ctx, query, escaped, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ArticleDocument), args.Error(1)
}

func (m *MockArticleRepo) ListByAuthorIDs(ctx context.Context, ids []primitive.ObjectID, limit int64) ([]models.ArticleDocument, error) {
	args := m.Called(ctx, ids, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ArticleDocument), args.Error(1)
}

func (m *MockArticleRepo) CountPerAuthor(ctx context.Context) (map[primitive.ObjectID]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]int64), args.Error(1)
}

// MockUserRepo is a mock implementation of repositories.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AuthorInfo, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[primitive.ObjectID]models.AuthorInfo), args.Error(1)
}

func (m *MockUserRepo) FindIDsByNameContains(ctx context.Context, escapedPattern string) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, escapedPattern)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}

func newArticleDoc(author primitive.ObjectID, title, content string, createdAt time.Time) models.ArticleDocument {
	return models.ArticleDocument{
		ID:         primitive.NewObjectID(),
		Title:      title,
		Content:    content,
		CoverImage: "https://example.com/cover.jpg",
		AuthorID:   author,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestArticleService_ListAll(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	author := primitive.NewObjectID()
	longContent := strings.Repeat("x", 200)
	docs := []models.ArticleDocument{
		newArticleDoc(author, "First", longContent, time.Now()),
		newArticleDoc(author, "Second", "short content", time.Now().Add(-time.Hour)),
	}

	mockArticles.On("List", mock.Anything, int64(0), int64(6)).Return(docs, nil).Once()
	mockArticles.On("Count", mock.Anything).Return(int64(15), nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{author}).
		Return(map[primitive.ObjectID]models.AuthorInfo{
			author: {Name: "Jane Doe", Email: "jane@example.com"},
		}, nil).Once()

	result, err := service.ListAll(context.Background(), 1, 6)
	assert.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(15), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 3, result.TotalPages) // ceil(15/6)

	// Content is excerpted to 150 chars plus ellipsis; short content untouched.
	assert.Equal(t, strings.Repeat("x", 150)+"...", result.Items[0].Content)
	assert.Equal(t, "short content", result.Items[1].Content)
	assert.Equal(t, "Jane Doe", result.Items[0].AuthorName)
	assert.Equal(t, "jane@example.com", result.Items[0].AuthorEmail)

	mockArticles.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestArticleService_ListAll_ExcerptKeepsMultiByteRunesIntact(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	author := primitive.NewObjectID()
	// 149 ASCII chars followed by multi-byte runes straddling the cut point.
	content := strings.Repeat("x", 149) + strings.Repeat("é", 20)
	docs := []models.ArticleDocument{
		newArticleDoc(author, "Accented", content, time.Now()),
	}

	mockArticles.On("List", mock.Anything, int64(0), int64(6)).Return(docs, nil).Once()
	mockArticles.On("Count", mock.Anything).Return(int64(1), nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{author}).
		Return(map[primitive.ObjectID]models.AuthorInfo{
			author: {Name: "Jane Doe", Email: "jane@example.com"},
		}, nil).Once()

	result, err := service.ListAll(context.Background(), 1, 6)
	assert.NoError(t, err)
	assert.Len(t, result.Items, 1)

	excerpt := result.Items[0].Content
	assert.True(t, utf8.ValidString(excerpt))
	assert.Equal(t, strings.Repeat("x", 149)+"é"+"...", excerpt)
	assert.Equal(t, 153, len([]rune(excerpt))) // 150 chars + "..."
}

func TestArticleService_ListAll_SkipFollowsPage(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	mockArticles.On("List", mock.Anything, int64(12), int64(6)).Return([]models.ArticleDocument{}, nil).Once()
	mockArticles.On("Count", mock.Anything).Return(int64(15), nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{}).
		Return(map[primitive.ObjectID]models.AuthorInfo{}, nil).Once()

	result, err := service.ListAll(context.Background(), 3, 6)
	assert.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 3, result.Page)

	mockArticles.AssertExpectations(t)
}

func TestArticleService_GetByID(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	author := primitive.NewObjectID()
	longContent := strings.Repeat("y", 300)
	doc := newArticleDoc(author, "Full article", longContent, time.Now())

	mockArticles.On("GetByID", mock.Anything, doc.ID).Return(&doc, nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{author}).
		Return(map[primitive.ObjectID]models.AuthorInfo{
			author: {Name: "Jane Doe", Email: "jane@example.com"},
		}, nil).Once()

	article, err := service.GetByID(context.Background(), doc.ID.Hex())
	assert.NoError(t, err)
	// Full content, never excerpted.
	assert.Equal(t, longContent, article.Content)
	assert.Equal(t, "Jane Doe", article.AuthorName)
	mockArticles.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestArticleService_GetByID_MalformedID(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	// A malformed id is reported as not-found, not as a validation error,
	// and never reaches the repository.
	_, err := service.GetByID(context.Background(), "not-a-hex-id")
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	mockArticles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestArticleService_GetByID_MissingAuthorDegrades(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	author := primitive.NewObjectID()
	doc := newArticleDoc(author, "Orphaned", "content here!", time.Now())

	mockArticles.On("GetByID", mock.Anything, doc.ID).Return(&doc, nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{author}).
		Return(map[primitive.ObjectID]models.AuthorInfo{}, nil).Once()

	article, err := service.GetByID(context.Background(), doc.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, "Unknown", article.AuthorName)
	assert.Equal(t, "", article.AuthorEmail)
}

func TestArticleService_Search_UnionDedup(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	jane := primitive.NewObjectID()
	// Article B matches the text query; article A only matches via the
	// author's name. Article B is also authored by Jane, so it appears in
	// both phases and must be returned once.
	articleB := newArticleDoc(jane, "About Jane things", "text matching Jane", time.Now())
	articleA := newArticleDoc(jane, "Unrelated title", "nothing relevant here", time.Now().Add(-time.Hour))

	mockUsers.On("FindIDsByNameContains", mock.Anything, "Jane").
		Return([]primitive.ObjectID{jane}, nil).Once()
	mockArticles.On("SearchText", mock.Anything, "Jane", "Jane", int64(50)).
		Return([]models.ArticleDocument{articleB}, nil).Once()
	mockArticles.On("ListByAuthorIDs", mock.Anything, []primitive.ObjectID{jane}, int64(50)).
		Return([]models.ArticleDocument{articleB, articleA}, nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{jane}).
		Return(map[primitive.ObjectID]models.AuthorInfo{
			jane: {Name: "Jane Doe", Email: "jane@example.com"},
		}, nil).Once()

	results, err := service.Search(context.Background(), "Jane", 0)
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	// Newest first after the merge.
	assert.Equal(t, articleB.ID.Hex(), results[0].ID)
	assert.Equal(t, articleA.ID.Hex(), results[1].ID)

	mockArticles.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}

func TestArticleService_Search_EscapesRegexMetacharacters(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	escaped := `c\+\+ \(tips\)`
	mockUsers.On("FindIDsByNameContains", mock.Anything, escaped).
		Return([]primitive.ObjectID{}, nil).Once()
	mockArticles.On("SearchText", mock.Anything, "c++ (tips)", escaped, int64(50)).
		Return([]models.ArticleDocument{}, nil).Once()
	mockArticles.On("ListByAuthorIDs", mock.Anything, []primitive.ObjectID{}, int64(50)).
		Return([]models.ArticleDocument{}, nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, []primitive.ObjectID{}).
		Return(map[primitive.ObjectID]models.AuthorInfo{}, nil).Once()

	results, err := service.Search(context.Background(), "c++ (tips)", 0)
	assert.NoError(t, err)
	assert.Empty(t, results)
	mockUsers.AssertExpectations(t)
}

func TestArticleService_ListMine(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	caller := primitive.NewObjectID()
	docs := []models.ArticleDocument{
		newArticleDoc(caller, "Mine", strings.Repeat("z", 180), time.Now()),
	}

	mockArticles.On("ListByAuthor", mock.Anything, caller, int64(0), int64(10)).Return(docs, nil).Once()
	mockArticles.On("CountByAuthor", mock.Anything, caller).Return(int64(1), nil).Once()

	result, err := service.ListMine(context.Background(), caller.Hex(), 1, 0)
	assert.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.TotalPages)
	// Owner views are excerpted and carry no denormalized author fields.
	assert.Equal(t, strings.Repeat("z", 150)+"...", result.Items[0].Content)

	// No author resolution for the owner view.
	mockUsers.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything)
	mockArticles.AssertExpectations(t)
}

func TestArticleService_Create(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	caller := primitive.NewObjectID()
	input := models.CreateArticleInput{
		Title:      "Hello World",
		Content:    "0123456789",
		CoverImage: "https://x.com/a.jpg",
	}

	mockArticles.On("Create", mock.Anything, mock.MatchedBy(func(doc *models.ArticleDocument) bool {
		return doc.Title == input.Title &&
			doc.Content == input.Content &&
			doc.CoverImage == input.CoverImage &&
			doc.AuthorID == caller &&
			doc.CreatedAt.Equal(doc.UpdatedAt)
	})).Return(nil).Once()

	article, err := service.Create(context.Background(), caller.Hex(), input)
	assert.NoError(t, err)
	assert.Equal(t, input.Title, article.Title)
	assert.Equal(t, input.Content, article.Content)
	assert.Equal(t, input.CoverImage, article.CoverImage)
	assert.Equal(t, caller.Hex(), article.AuthorID)
	assert.NotEmpty(t, article.ID)
	mockArticles.AssertExpectations(t)
}

func TestArticleService_Update_PartialFields(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	caller := primitive.NewObjectID()
	articleID := primitive.NewObjectID()
	newTitle := "New Title"

	mockArticles.On("GetAuthorID", mock.Anything, articleID).Return(caller, nil).Once()
	mockArticles.On("UpdateFields", mock.Anything, articleID, mock.MatchedBy(func(fields map[string]interface{}) bool {
		_, hasTitle := fields["title"]
		_, hasContent := fields["content"]
		_, hasCover := fields["coverImage"]
		_, hasUpdatedAt := fields["updatedAt"]
		return hasTitle && hasUpdatedAt && !hasContent && !hasCover
	})).Return(nil).Once()

	err := service.Update(context.Background(), caller.Hex(), articleID.Hex(), models.UpdateArticleInput{Title: &newTitle})
	assert.NoError(t, err)
	mockArticles.AssertExpectations(t)
}

func TestArticleService_Update_Forbidden(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	articleID := primitive.NewObjectID()
	newTitle := "Hijacked"

	mockArticles.On("GetAuthorID", mock.Anything, articleID).Return(owner, nil).Once()

	err := service.Update(context.Background(), intruder.Hex(), articleID.Hex(), models.UpdateArticleInput{Title: &newTitle})
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	mockArticles.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestArticleService_Delete_NotFoundIsStable(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	caller := primitive.NewObjectID()
	missing := primitive.NewObjectID()

	// Deleting a nonexistent article reports not-found on every attempt.
	mockArticles.On("GetAuthorID", mock.Anything, missing).Return(primitive.NilObjectID, mongo.ErrNoDocuments).Twice()

	err := service.Delete(context.Background(), caller.Hex(), missing.Hex())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	err = service.Delete(context.Background(), caller.Hex(), missing.Hex())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	mockArticles.AssertExpectations(t)
}

func TestArticleService_Delete_Forbidden(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	articleID := primitive.NewObjectID()

	mockArticles.On("GetAuthorID", mock.Anything, articleID).Return(owner, nil).Once()

	err := service.Delete(context.Background(), intruder.Hex(), articleID.Hex())
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	mockArticles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestArticleService_ListAuthors(t *testing.T) {
	mockArticles := new(MockArticleRepo)
	mockUsers := new(MockUserRepo)
	service := services.NewArticleService(mockArticles, mockUsers, nil)

	prolific := primitive.NewObjectID()
	casual := primitive.NewObjectID()

	mockArticles.On("CountPerAuthor", mock.Anything).Return(map[primitive.ObjectID]int64{
		prolific: 7,
		casual:   2,
	}, nil).Once()
	mockUsers.On("ListByIDs", mock.Anything, mock.Anything).
		Return(map[primitive.ObjectID]models.AuthorInfo{
			prolific: {Name: "Prolific", Email: "p@example.com"},
			casual:   {Name: "Casual", Email: "c@example.com"},
		}, nil).Once()

	authors, err := service.ListAuthors(context.Background())
	assert.NoError(t, err)
	assert.Len(t, authors, 2)
	assert.Equal(t, "Prolific", authors[0].Name)
	assert.Equal(t, int64(7), authors[0].ArticleCount)
	assert.Equal(t, int64(2), authors[1].ArticleCount)
	mockArticles.AssertExpectations(t)
	mockUsers.AssertExpectations(t)
}
