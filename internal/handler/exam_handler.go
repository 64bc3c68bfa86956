package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/examplify/examplify-backend/internal/middleware"
	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/response"
	"github.com/examplify/examplify-backend/internal/service"
	"github.com/examplify/examplify-backend/internal/validator"
)

type ExamHandler struct {
	examService *service.ExamService
}

func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// List godoc
// GET /api/v1/author/exams
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.examService.ListByCreator(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Create godoc
// POST /api/v1/author/exams
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// Get godoc
// GET /api/v1/author/exams/:id
func (h *ExamHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.examService.GetDetail(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// Update godoc
// PUT /api/v1/author/exams/:id
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Delete godoc
// DELETE /api/v1/author/exams/:id
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, claims.UserID); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam deleted successfully"})
}

// ResultVisibilityRequest toggles early result release.
type ResultVisibilityRequest struct {
	ShowResults *bool `json:"show_results" binding:"required"`
}

// SetResultVisibility godoc
// PATCH /api/v1/author/exams/:id/results-visibility
func (h *ExamHandler) SetResultVisibility(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req ResultVisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.examService.SetResultVisibility(c.Request.Context(), examID, claims.UserID, *req.ShowResults); err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "result visibility updated"})
}

// failExamError maps exam domain errors onto HTTP statuses and error codes.
func failExamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotExamCreator):
		response.Fail(c, http.StatusForbidden, response.ErrNotResourceOwner)
	case errors.Is(err, service.ErrExamClosed),
		errors.Is(err, service.ErrExamStateChanged):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrScheduleRequired):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrScheduleNeeded)
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrCodeSpaceExhausted)
	case errors.Is(err, service.ErrPoolNotFound),
		errors.Is(err, service.ErrPoolCycle),
		errors.Is(err, service.ErrRefTooDeep),
		errors.Is(err, service.ErrDuplicateRef),
		errors.Is(err, service.ErrRefExamOwned),
		errors.Is(err, service.ErrNotPoolOwner),
		errors.Is(err, service.ErrPoolReferenced):
		failPoolError(c, err)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
