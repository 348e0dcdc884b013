package handler

import (
	"net/http"

	"phonenorm_backend/internal/normalization/service"
	"phonenorm_backend/internal/normalization/transport"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/httpkit"
	"phonenorm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for phone number normalization.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job ID"
)

// New creates a new normalization handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Normalize normalizes one number. Failures are reported in the result body,
// not as HTTP errors.
// POST /api/v1/phone/normalize
func (h *Handler) Normalize(c *gin.Context) {
	var req transport.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	httpkit.OK(c, h.svc.Normalize(c.Request.Context(), req))
}

// NormalizeBatch normalizes several numbers synchronously.
// POST /api/v1/phone/normalize/batch
func (h *Handler) NormalizeBatch(c *gin.Context) {
	req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	result, err := h.svc.NormalizeBatch(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateJob queues a batch for background normalization.
// POST /api/v1/phone/jobs
func (h *Handler) CreateJob(c *gin.Context) {
	req, ok := h.bindBatch(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateJob(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, result)
}

// GetJob returns the state of a background job.
// GET /api/v1/phone/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidJobID))
		return
	}

	result, err := h.svc.GetJob(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bindBatch(c *gin.Context) (transport.BatchRequest, bool) {
	var req transport.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return req, false
	}
	return req, true
}
