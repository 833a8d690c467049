package adminapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/webserver"
)

func registerSessionRoutes() {
	webserver.ApiPOST("/create-session", postCreateSession)
	webserver.ApiPOST("/logout/:sessionName", postLogoutSession)
	webserver.ApiGET("/sessions", listSessions)
	webserver.PubGET("/sessions/:sessionName/qr", getSessionQR)
}

type createSessionRequest struct {
	SessionName string `json:"sessionName"`
	Sender      string `json:"sender"`
	Username    string `json:"username"`
	Email       string `json:"email"`
}

func postCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	req.SessionName = strings.TrimSpace(req.SessionName)
	if req.SessionName == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionName is required", nil)
	}

	ctx := c.Request().Context()
	if _, err := api.db.Sessions().GetByName(ctx, req.SessionName); err == nil {
		return fail(c, http.StatusConflict, "SESSION_EXISTS", "Session already exists", nil)
	} else if err != store.ErrNotFound {
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to query session", nil)
	}

	if _, err := api.manager.CreateSession(ctx, req.SessionName, req.Sender, req.Username, req.Email); err != nil {
		zap.L().Error("adminapi: create session failed",
			zap.String("session", req.SessionName), zap.Error(err))
		api.lifecycle.CleanupFailedSetup(ctx, req.SessionName)
		return fail(c, http.StatusInternalServerError, "CREATE_FAILED", "Failed to create session", err.Error())
	}

	return ok(c, map[string]interface{}{
		"sessionName": req.SessionName,
		"qr":          "/sessions/" + req.SessionName + "/qr",
	})
}

func postLogoutSession(c echo.Context) error {
	name := c.Param("sessionName")
	if name == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionName required", nil)
	}
	if _, connected := api.registry.Get(name); !connected {
		return fail(c, http.StatusNotFound, "SESSION_NOT_CONNECTED", "No connected client for session", nil)
	}
	if err := api.lifecycle.Logout(c.Request().Context(), name, ""); err != nil {
		zap.L().Error("adminapi: logout failed", zap.String("session", name), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout session", err.Error())
	}
	return ok(c, map[string]interface{}{"loggedOut": true})
}

func listSessions(c echo.Context) error {
	connected := api.registry.Names()
	return ok(c, map[string]interface{}{"connected": connected})
}

// getSessionQR serves the rendered QR PNG for a pairing session.
func getSessionQR(c echo.Context) error {
	name := c.Param("sessionName")
	qrPath := api.lifecycle.QrPath(name)
	if _, err := os.Stat(qrPath); err != nil {
		return fail(c, http.StatusNotFound, "QR_NOT_READY", "No QR code generated for session", nil)
	}
	return c.File(qrPath)
}
