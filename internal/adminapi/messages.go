package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/webserver"
)

func registerMessageRoutes() {
	webserver.ApiGET("/messages/:sessionName", getMessagesBySession)
	webserver.ApiGET("/messages-sender/:sender", getMessagesBySender)
	webserver.ApiGET("/contacts", listContacts)
}

func getMessagesBySession(c echo.Context) error {
	name := c.Param("sessionName")
	if name == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionName required", nil)
	}
	ctx := c.Request().Context()
	sess, err := api.db.Sessions().GetByName(ctx, name)
	if err == store.ErrNotFound {
		return fail(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to query session", nil)
	}
	msgs, err := api.db.Messages().ListBySession(ctx, sess.ID)
	if err != nil {
		zap.L().Error("adminapi: list messages failed", zap.String("session", name), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list messages", nil)
	}
	return ok(c, map[string]interface{}{
		"sessionName": name,
		"status":      sess.Status,
		"messages":    msgs,
	})
}

func getMessagesBySender(c echo.Context) error {
	sender := c.Param("sender")
	if sender == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sender required", nil)
	}
	msgs, err := api.db.Messages().ListBySender(c.Request().Context(), sender)
	if err != nil {
		zap.L().Error("adminapi: list messages by sender failed", zap.String("sender", sender), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list messages", nil)
	}
	return ok(c, map[string]interface{}{"sender": sender, "messages": msgs})
}

// listContacts returns the users seen so far, one per sender number.
func listContacts(c echo.Context) error {
	users, err := api.db.Users().List(c.Request().Context())
	if err != nil {
		zap.L().Error("adminapi: list contacts failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list contacts", nil)
	}
	return ok(c, map[string]interface{}{"contacts": users})
}
