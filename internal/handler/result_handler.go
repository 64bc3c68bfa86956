package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examplify/examplify-backend/internal/middleware"
	"github.com/examplify/examplify-backend/internal/response"
	"github.com/examplify/examplify-backend/internal/service"
)

// ResultHandler serves the creator-facing results surface.
type ResultHandler struct {
	resultService *service.ResultService
}

func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// ListByExam godoc
// GET /api/v1/author/exams/:id/results
func (h *ResultHandler) ListByExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summaries, err := h.resultService.ListByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failResultError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": summaries})
}

// GetTakerResult godoc
// GET /api/v1/author/exams/:id/results/:taker_id
func (h *ResultHandler) GetTakerResult(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	takerID, err := uuid.Parse(c.Param("taker_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.resultService.GetTakerResult(c.Request.Context(), examID, claims.UserID, takerID)
	if err != nil {
		failResultError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

func failResultError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrRegistrationNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamCreator):
		response.Fail(c, http.StatusForbidden, response.ErrNotResourceOwner)
	case errors.Is(err, service.ErrResultsUnavailable):
		response.Fail(c, http.StatusNotFound, response.ErrResultsUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
