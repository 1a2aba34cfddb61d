package readings

import (
	"github.com/gin-gonic/gin"

	"telemetry_backend/platform/httpkit"
	"telemetry_backend/platform/schemaname"
	"telemetry_backend/platform/validator"
)

const tenantSchemaHeader = "X-Tenant-Schema"

// Handler handles the internal readings API.
type Handler struct {
	engine *Engine
	val    *validator.Validator
}

// NewHandler creates a readings handler.
func NewHandler(engine *Engine, val *validator.Validator) *Handler {
	return &Handler{engine: engine, val: val}
}

// ConfirmReadingRequest is the body for confirming or overriding a reading.
type ConfirmReadingRequest struct {
	CorrelationID    string  `json:"correlationId" validate:"required"`
	ConfirmedReading float64 `json:"confirmedReading" validate:"gte=0"`
}

// ConfirmReadingResponse mirrors the reading result for API callers.
type ConfirmReadingResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	CorrelationID string   `json:"correlationId"`
	MeterReading  *float64 `json:"meterReading,omitempty"`
	QualityStatus string   `json:"qualityStatus"`
}

// ConfirmReading overwrites the confirmed value for a correlation id.
// PUT /api/v1/readings/confirm
// The tenant schema is carried in the X-Tenant-Schema header by internal
// callers that already know the tenant.
func (h *Handler) ConfirmReading(c *gin.Context) {
	schema := c.GetHeader(tenantSchemaHeader)
	if err := schemaname.Validate(schema); err != nil {
		httpkit.Error(c, 400, "invalid or missing "+tenantSchemaHeader+" header")
		return
	}

	var req ConfirmReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request body")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation error")
		return
	}

	result, err := h.engine.Confirm(c.Request.Context(), schema, req.CorrelationID, req.ConfirmedReading)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, ConfirmReadingResponse{
		Success:       result.Success,
		Message:       result.Message,
		CorrelationID: result.CorrelationID,
		MeterReading:  result.MeterReading,
		QualityStatus: result.QualityStatus,
	})
}
