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

type PoolHandler struct {
	poolService *service.PoolService
}

func NewPoolHandler(poolService *service.PoolService) *PoolHandler {
	return &PoolHandler{poolService: poolService}
}

// List godoc
// GET /api/v1/author/pools
func (h *PoolHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	pools, err := h.poolService.ListReusable(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pools": pools})
}

// Create godoc
// POST /api/v1/author/pools
func (h *PoolHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreatePoolRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	pool, err := h.poolService.CreateReusable(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failPoolError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"pool": pool})
}

// Get godoc
// GET /api/v1/author/pools/:id
func (h *PoolHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.poolService.GetDetail(c.Request.Context(), poolID, claims.UserID)
	if err != nil {
		failPoolError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pool": detail})
}

// Update godoc
// PUT /api/v1/author/pools/:id
func (h *PoolHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdatePoolRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.poolService.UpdateReusable(c.Request.Context(), poolID, claims.UserID, &req); err != nil {
		failPoolError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "pool updated successfully"})
}

// Delete godoc
// DELETE /api/v1/author/pools/:id
func (h *PoolHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.poolService.Delete(c.Request.Context(), poolID, claims.UserID); err != nil {
		failPoolError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "pool deleted successfully"})
}

// InUse godoc
// GET /api/v1/author/pools/:id/in-use
func (h *PoolHandler) InUse(c *gin.Context) {
	claims := middleware.GetClaims(c)

	poolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inUse, err := h.poolService.IsReferenced(c.Request.Context(), poolID, claims.UserID)
	if err != nil {
		failPoolError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"in_use": inUse})
}

// failPoolError maps pool domain errors onto HTTP statuses and error codes.
func failPoolError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotPoolOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotResourceOwner)
	case errors.Is(err, service.ErrPoolCycle), errors.Is(err, service.ErrRefTooDeep):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrPoolCycle)
	case errors.Is(err, service.ErrDuplicateRef),
		errors.Is(err, service.ErrRefExamOwned):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidPayload)
	case errors.Is(err, service.ErrPoolReferenced):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
