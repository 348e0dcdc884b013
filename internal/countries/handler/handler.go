package handler

import (
	"net/http"

	"phonenorm_backend/internal/countries/service"
	"phonenorm_backend/internal/countries/transport"
	"phonenorm_backend/platform/apperr"
	"phonenorm_backend/platform/httpkit"
	"phonenorm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the country rule table.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest     = "invalid request"
	msgValidationFailed   = "validation failed"
	msgInvalidCallingCode = "invalid calling code"
)

// New creates a new countries handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the table currently in use.
// GET /api/v1/phone/countries
func (h *Handler) List(c *gin.Context) {
	httpkit.OK(c, h.svc.List())
}

// Get returns one country entry.
// GET /api/v1/phone/countries/:code
func (h *Handler) Get(c *gin.Context) {
	code, ok := h.callingCodeParam(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(code)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Regions lists the accepted region labels.
// GET /api/v1/phone/regions
func (h *Handler) Regions(c *gin.Context) {
	httpkit.OK(c, h.svc.Regions())
}

// Reload re-reads the table from its configured source.
// POST /api/v1/admin/phone/countries/reload
func (h *Handler) Reload(c *gin.Context) {
	result, err := h.svc.Reload(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Upsert replaces the rules of one calling code.
// PUT /api/v1/admin/phone/countries/:code
func (h *Handler) Upsert(c *gin.Context) {
	code, ok := h.callingCodeParam(c)
	if !ok {
		return
	}

	var req transport.UpsertCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.Upsert(c.Request.Context(), code, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) callingCodeParam(c *gin.Context) (string, bool) {
	code := c.Param("code")
	if err := h.val.Var(code, "required,calling_code"); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidCallingCode))
		return "", false
	}
	return code, true
}
