package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
	"github.com/prepexam/prepexam-backend/internal/validator"
)

// CatalogHandler handles the candidate-facing test catalog and the author
// workflow (draft → questions → publish).
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// ListTests godoc
// GET /api/v1/tests
// Returns all published tests.
func (h *CatalogHandler) ListTests(c *gin.Context) {
	tests, err := h.catalogService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTestPayload godoc
// GET /api/v1/tests/:test_id
// Returns the cached candidate payload (questions without correct answers).
func (h *CatalogHandler) GetTestPayload(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	payload, err := h.catalogService.GetTestPayload(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotAvailable)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": payload})
}

// CreateTest godoc
// POST /api/v1/author/tests
// Creates a new test in DRAFT status owned by the caller.
func (h *CatalogHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test := &model.Test{
		Title:           req.Title,
		AuthorID:        claims.UserID,
		DurationMinutes: req.DurationMinutes,
		Status:          model.TestStatusDraft,
	}
	if err := h.catalogService.Create(c.Request.Context(), test); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// ReplaceQuestions godoc
// PUT /api/v1/author/tests/:test_id/questions
// Replaces the question set of a draft test in one transaction.
func (h *CatalogHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalogService.ReplaceQuestions(c.Request.Context(), testID, claims.UserID, req.Questions); err != nil {
		h.failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(req.Questions)})
}

// PublishTest godoc
// POST /api/v1/author/tests/:test_id/publish
// Moves a draft to PUBLISHED and warms its Redis payload + answer key.
func (h *CatalogHandler) PublishTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalogService.Publish(c.Request.Context(), testID, claims.UserID); err != nil {
		h.failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// DeleteTest godoc
// DELETE /api/v1/author/tests/:test_id
// Deletes a draft test.
func (h *CatalogHandler) DeleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), testID, claims.UserID); err != nil {
		h.failAuthoring(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// failAuthoring maps authoring domain errors onto HTTP responses.
func (h *CatalogHandler) failAuthoring(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotTestAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
	case errors.Is(err, service.ErrTestNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrTestNotDraft)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrBadAnswerKey):
		response.Fail(c, http.StatusBadRequest, response.ErrBadAnswerKey)
	case errors.Is(err, service.ErrTestNotFound), errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
