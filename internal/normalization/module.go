// Package normalization provides the phone normalization bounded context module.
// It serves single and batch normalization and tracks background batch jobs.
package normalization

import (
	"context"

	"phonenorm_backend/internal/events"
	apphttp "phonenorm_backend/internal/http"
	"phonenorm_backend/internal/normalization/handler"
	"phonenorm_backend/internal/normalization/repository"
	"phonenorm_backend/internal/normalization/service"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/validator"
)

// Module is the normalization bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

var _ apphttp.Module = (*Module)(nil)

// NewModule creates and initializes the normalization module with all its dependencies.
func NewModule(normalizer *phone.Normalizer, deps service.Deps, maxBatchSize int, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(normalizer, deps, maxBatchSize, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "normalization"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts normalization routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	phoneGroup := ctx.V1.Group("/phone")
	phoneGroup.POST("/normalize", m.handler.Normalize)
	phoneGroup.POST("/normalize/batch", m.handler.NormalizeBatch)
	phoneGroup.POST("/jobs", m.handler.CreateJob)
	phoneGroup.GET("/jobs/:id", m.handler.GetJob)
}

// RegisterHandlers subscribes to table reloads and job completions.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameCountryTableReloaded, m)
	bus.Subscribe(events.NameNormalizationJobCompleted, m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx)

	switch e := event.(type) {
	case events.CountryTableReloaded:
		log.Info("normalizing with reloaded country table",
			"source", e.Source,
			"entries", e.Entries,
			"version", e.Version,
			"origin", e.Origin,
		)
	case events.NormalizationJobCompleted:
		if e.Status == repository.StatusFailed {
			log.Warn("normalization job failed", "jobId", e.JobID, "reason", e.Message)
			return nil
		}
		log.Info("normalization job finished", "jobId", e.JobID, "total", e.Total, "failed", e.Failed)
	}
	return nil
}
