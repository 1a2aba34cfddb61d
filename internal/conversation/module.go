// Package conversation provides the chat-platform webhook bounded context.
// This file defines the module that encapsulates its wiring and route
// registration.
package conversation

import (
	apphttp "telemetry_backend/internal/http"
	"telemetry_backend/platform/logger"
)

// Module is the conversation bounded context implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the conversation service with its collaborator ports.
func NewModule(directory TenantDirectory, prefs PreferenceStore, contentResolver ContentResolver,
	capture ReadingCapture, media MediaFetcher, images ImageStore, log *logger.Logger) *Module {
	service := NewService(directory, prefs, contentResolver, capture, media, images, log)
	return &Module{handler: NewHandler(service)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// RegisterRoutes mounts the webhook steps on the rate-limited webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhook.POST("/intro", m.handler.Intro)
	ctx.Webhook.POST("/language/selection", m.handler.LanguageSelection)
	ctx.Webhook.POST("/selected/language", m.handler.SelectedLanguage)
	ctx.Webhook.POST("/channel/selection", m.handler.ChannelSelection)
	ctx.Webhook.POST("/selected/channel", m.handler.SelectedChannel)
	ctx.Webhook.POST("/item/selection", m.handler.ItemSelection)
	ctx.Webhook.POST("/selected/item", m.handler.SelectedItem)
	ctx.Webhook.POST("/meterChange", m.handler.MeterChange)
	ctx.Webhook.POST("/takemeterreading", m.handler.TakeMeterReading)
	ctx.Webhook.POST("/manualReading", m.handler.ManualReading)
	ctx.Webhook.POST("/glific", m.handler.Glific)
	ctx.Webhook.POST("/closing", m.handler.Closing)
}
