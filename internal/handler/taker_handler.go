package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examplify/examplify-backend/internal/middleware"
	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/response"
	"github.com/examplify/examplify-backend/internal/service"
	"github.com/examplify/examplify-backend/internal/validator"
)

// TakerHandler serves the taker-facing attempt flow: redeem a code, list
// registered exams, start, autosave, submit and fetch the own result.
type TakerHandler struct {
	regService    *service.RegistrationService
	examService   *service.ExamService
	resultService *service.ResultService
}

func NewTakerHandler(
	regService *service.RegistrationService,
	examService *service.ExamService,
	resultService *service.ResultService,
) *TakerHandler {
	return &TakerHandler{
		regService:    regService,
		examService:   examService,
		resultService: resultService,
	}
}

// Register godoc
// POST /api/v1/taker/registrations
func (h *TakerHandler) Register(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reg, err := h.regService.Register(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		failTakerError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"registration": reg})
}

// ListExams godoc
// GET /api/v1/taker/exams
func (h *TakerHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)

	exams, err := h.examService.ListByRegisteredTaker(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Start godoc
// POST /api/v1/taker/exams/:code/start
func (h *TakerHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	code := c.Param("code")

	set, err := h.regService.Start(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failTakerError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question_set": set})
}

// SaveProgress godoc
// PUT /api/v1/taker/exams/:code/progress
func (h *TakerHandler) SaveProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	code := c.Param("code")

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.regService.SaveProgress(c.Request.Context(), claims.UserID, code, req.Answers); err != nil {
		failTakerError(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"message": "progress queued"})
}

// Submit godoc
// POST /api/v1/taker/exams/:code/submit
func (h *TakerHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	code := c.Param("code")

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.regService.Submit(c.Request.Context(), claims.UserID, code, &req)
	if err != nil {
		failTakerError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/taker/exams/:code/result
func (h *TakerHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	code := c.Param("code")

	result, err := h.resultService.GetOwnResult(c.Request.Context(), claims.UserID, code)
	if err != nil {
		failTakerError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// failTakerError maps attempt-flow domain errors onto HTTP statuses.
func failTakerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound),
		errors.Is(err, service.ErrRegistrationNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadyRegistered):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyRegistered)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrExamNotOpen):
		response.Fail(c, http.StatusConflict, response.ErrExamNotOpen)
	case errors.Is(err, service.ErrResultsUnavailable):
		response.Fail(c, http.StatusForbidden, response.ErrResultsUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
