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

// SubmissionHandler handles answer submission and result retrieval over REST.
// The WebSocket session uses the same grading service; this endpoint exists
// for clients that lost the socket mid-session and for re-submissions.
type SubmissionHandler struct {
	gradingService *service.GradingService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(gradingService *service.GradingService) *SubmissionHandler {
	return &SubmissionHandler{gradingService: gradingService}
}

// Submit godoc
// POST /api/v1/tests/:test_id/submissions
// Grades the candidate's answers and upserts their attempt. Repeating the
// call with the same answers is idempotent; new answers replace the old
// attempt.
func (h *SubmissionHandler) Submit(c *gin.Context) {
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

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.gradingService.Submit(c.Request.Context(), claims.UserID, testID, req.Answers, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrAnswerKeyMissing):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotAvailable)
		case errors.Is(err, service.ErrMalformedAnswers):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetSubmission godoc
// GET /api/v1/tests/:test_id/submissions/me
// Returns the caller's recorded attempt for a test.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
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

	submission, err := h.gradingService.GetSubmission(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": submission})
}
