package readings

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "telemetry_backend/internal/http"
	"telemetry_backend/internal/ocr"
	"telemetry_backend/platform/logger"
	"telemetry_backend/platform/validator"
)

// Module is the readings bounded context implementing http.Module.
type Module struct {
	engine  *Engine
	handler *Handler
}

// NewModule wires the reading store, engine, and handler together.
func NewModule(pool *pgxpool.Pool, extractor ocr.Extractor, val *validator.Validator, log *logger.Logger) *Module {
	store := NewStore(pool)
	engine := NewEngine(store, extractor, log)
	handler := NewHandler(engine, val)

	return &Module{engine: engine, handler: handler}
}

// Engine exposes the reading engine to the conversation module.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "readings"
}

// RegisterRoutes mounts the internal readings API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.API.PUT("/readings/confirm", m.handler.ConfirmReading)
}
