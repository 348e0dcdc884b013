// Package countries provides the country rule bounded context module.
// It exposes the table the normalizer is using and lets admins reload or edit it.
package countries

import (
	"context"

	"phonenorm_backend/internal/countries/broadcast"
	"phonenorm_backend/internal/countries/handler"
	"phonenorm_backend/internal/countries/service"
	"phonenorm_backend/internal/events"
	apphttp "phonenorm_backend/internal/http"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/validator"
)

// Module is the countries bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

var _ apphttp.Module = (*Module)(nil)

// NewModule creates and initializes the countries module with all its dependencies.
// store is nil unless the table lives in Postgres; announcer is nil without Redis.
func NewModule(normalizer *phone.Normalizer, store service.Store, announcer service.Announcer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(normalizer, store, announcer, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "countries"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts country routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	phoneGroup := ctx.V1.Group("/phone")
	phoneGroup.GET("/countries", m.handler.List)
	phoneGroup.GET("/countries/:code", m.handler.Get)
	phoneGroup.GET("/regions", m.handler.Regions)

	adminGroup := ctx.Admin.Group("/phone/countries")
	adminGroup.POST("/reload", m.handler.Reload)
	adminGroup.PUT("/:code", m.handler.Upsert)
}

// FollowPeers reloads the table whenever another instance announces a reload.
// It blocks until ctx is cancelled.
func (m *Module) FollowPeers(ctx context.Context, listener *broadcast.Listener) error {
	return listener.Run(ctx, func(ctx context.Context, _ broadcast.Message) error {
		return m.service.ApplyPeerReload(ctx)
	})
}
