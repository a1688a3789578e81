package handlers

import (
	"fmt"
	"log"
	"regexp"

	"cms/internal/apperrors"
	"cms/internal/middleware"
	"cms/internal/models"
	"cms/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// imageURLPattern enforces that cover images end in an image extension,
// case-insensitively.
var imageURLPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)

// registerImageURLRule adds the "imageurl" validation tag used by the
// article input structs.
func registerImageURLRule(validate *validator.Validate) {
	_ = validate.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		return imageURLPattern.MatchString(fl.Field().String())
	})
}

// ArticleHandler handles HTTP requests for articles and authors.
type ArticleHandler struct {
	service  *services.ArticleService
	validate *validator.Validate
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(service *services.ArticleService) *ArticleHandler {
	validate := validator.New()
	registerImageURLRule(validate)
	return &ArticleHandler{
		service:  service,
		validate: validate,
	}
}

// RegisterPublicRoutes registers the routes available to anonymous visitors.
func (h *ArticleHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Get("/articles", h.HandleListArticles)
	router.Get("/articles/search", h.HandleSearchArticles)
	router.Get("/articles/:id", h.HandleGetArticle)
	router.Get("/authors", h.HandleListAuthors)
}

// RegisterProtectedRoutes registers the routes that require a session.
func (h *ArticleHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Get("/my/articles", h.HandleListMyArticles)
	router.Post("/articles", h.HandleCreateArticle)
	router.Patch("/articles/:id", h.HandleUpdateArticle)
	router.Delete("/articles/:id", h.HandleDeleteArticle)
}

// listQuery holds the pagination query parameters. Out-of-range values
// are rejected, not clamped; zero means "use the default".
type listQuery struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// searchQuery holds the search query parameters.
type searchQuery struct {
	Q     string `query:"q" validate:"required,min=1,max=200"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// HandleListArticles returns a page of published articles.
func (h *ArticleHandler) HandleListArticles(c *fiber.Ctx) error {
	var query listQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, apperrors.Validation("invalid pagination parameters"))
	}
	if err := h.validate.Struct(query); err != nil {
		return respondValidationError(c, err)
	}

	result, err := h.service.ListAll(c.Context(), query.Page, query.Limit)
	if err != nil {
		log.Printf("Error listing articles: %v", err)
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleGetArticle returns one article with its full content.
func (h *ArticleHandler) HandleGetArticle(c *fiber.Ctx) error {
	article, err := h.service.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			log.Printf("Error getting article %s: %v", c.Params("id"), err)
		}
		return respondError(c, err)
	}
	return c.JSON(article)
}

// HandleSearchArticles returns articles matching the query by text or by
// author name.
func (h *ArticleHandler) HandleSearchArticles(c *fiber.Ctx) error {
	var query searchQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, apperrors.Validation("invalid search parameters"))
	}
	if err := h.validate.Struct(query); err != nil {
		return respondValidationError(c, err)
	}

	articles, err := h.service.Search(c.Context(), query.Q, query.Limit)
	if err != nil {
		log.Printf("Error searching articles for %q: %v", query.Q, err)
		return respondError(c, err)
	}
	return c.JSON(articles)
}

// HandleListMyArticles returns a page of the caller's own articles.
func (h *ArticleHandler) HandleListMyArticles(c *fiber.Ctx) error {
	user := middleware.SessionUser(c)
	if user == nil {
		return respondError(c, apperrors.Unauthorized("you must be logged in"))
	}

	var query listQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, apperrors.Validation("invalid pagination parameters"))
	}
	if err := h.validate.Struct(query); err != nil {
		return respondValidationError(c, err)
	}

	result, err := h.service.ListMine(c.Context(), user.ID, query.Page, query.Limit)
	if err != nil {
		log.Printf("Error listing articles for user %s: %v", user.ID, err)
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleCreateArticle creates a new article owned by the caller.
func (h *ArticleHandler) HandleCreateArticle(c *fiber.Ctx) error {
	user := middleware.SessionUser(c)
	if user == nil {
		return respondError(c, apperrors.Unauthorized("you must be logged in"))
	}

	var input models.CreateArticleInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	article, err := h.service.Create(c.Context(), user.ID, input)
	if err != nil {
		log.Printf("Error creating article for user %s: %v", user.ID, err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// HandleUpdateArticle applies a partial update to an article the caller owns.
func (h *ArticleHandler) HandleUpdateArticle(c *fiber.Ctx) error {
	user := middleware.SessionUser(c)
	if user == nil {
		return respondError(c, apperrors.Unauthorized("you must be logged in"))
	}

	var input models.UpdateArticleInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	id := c.Params("id")
	if err := h.service.Update(c.Context(), user.ID, id, input); err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			log.Printf("Error updating article %s: %v", id, err)
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id})
}

// HandleDeleteArticle permanently removes an article the caller owns.
func (h *ArticleHandler) HandleDeleteArticle(c *fiber.Ctx) error {
	user := middleware.SessionUser(c)
	if user == nil {
		return respondError(c, apperrors.Unauthorized("you must be logged in"))
	}

	id := c.Params("id")
	if err := h.service.Delete(c.Context(), user.ID, id); err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			log.Printf("Error deleting article %s: %v", id, err)
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleListAuthors returns every author with their article count.
func (h *ArticleHandler) HandleListAuthors(c *fiber.Ctx) error {
	authors, err := h.service.ListAuthors(c.Context())
	if err != nil {
		log.Printf("Error listing authors: %v", err)
		return respondError(c, err)
	}
	return c.JSON(authors)
}

// respondError maps an application error to its HTTP response.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
		"message": apperrors.ClientMessage(err),
	})
}

// respondValidationError reports which fields failed which rules.
func respondValidationError(c *fiber.Ctx, err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return respondError(c, apperrors.Validation("validation failed"))
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
