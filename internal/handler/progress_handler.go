package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepexam/prepexam-backend/internal/middleware"
	"github.com/prepexam/prepexam-backend/internal/response"
	"github.com/prepexam/prepexam-backend/internal/service"
)

// ProgressHandler exposes the caller's accumulated points, rank and badges.
type ProgressHandler struct {
	progressionService *service.ProgressionService
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progressionService *service.ProgressionService) *ProgressHandler {
	return &ProgressHandler{progressionService: progressionService}
}

// GetProgress godoc
// GET /api/v1/progress/me
// Returns the caller's progress. Users with no graded submissions get zero
// points and the starting rank.
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	progress, badges, err := h.progressionService.GetProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"progress": progress,
		"badges":   badges,
	})
}
