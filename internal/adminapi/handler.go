// Package adminapi implements the HTTP API: auth, session management,
// message history, direct chatbot queries and webhook receivers.
package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/wabridge/config"
	"github.com/talkincode/wabridge/internal/pipeline"
	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/whatsapp"
)

var api *Api

// Api bundles the services the HTTP handlers operate on.
type Api struct {
	cfg       *config.AppConfig
	db        store.Database
	registry  *whatsapp.Registry
	lifecycle *whatsapp.Lifecycle
	manager   *whatsapp.Manager
	responder pipeline.Responder
}

// Init wires the handler dependencies and registers all routes.
func Init(cfg *config.AppConfig, db store.Database, registry *whatsapp.Registry,
	lifecycle *whatsapp.Lifecycle, manager *whatsapp.Manager, responder pipeline.Responder) {
	api = &Api{
		cfg:       cfg,
		db:        db,
		registry:  registry,
		lifecycle: lifecycle,
		manager:   manager,
		responder: responder,
	}
	registerAuthRoutes()
	registerSessionRoutes()
	registerMessageRoutes()
	registerChatbotRoutes()
	registerWebhookRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"code":    code,
		"message": msg,
		"detail":  detail,
	})
}
