package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/webserver"
)

func registerWebhookRoutes() {
	webserver.PubPOST("/wppconnect/send-reply", postSendReply)
}

type sendReplyRequest struct {
	SessionName string `json:"sessionName"`
	To          string `json:"to"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

// postSendReply lets the back office push an agent reply out through a
// connected WhatsApp session.
func postSendReply(c echo.Context) error {
	var req sendReplyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	to := req.To
	if to == "" {
		to = req.Phone
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionName == "" || to == "" || req.Message == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "sessionName, to and message are required", nil)
	}

	cli, connected := api.registry.Get(req.SessionName)
	if !connected {
		return fail(c, http.StatusNotFound, "SESSION_NOT_CONNECTED", "No connected client for session", nil)
	}
	if err := cli.SendText(c.Request().Context(), to, req.Message); err != nil {
		zap.L().Error("adminapi: send reply failed",
			zap.String("session", req.SessionName), zap.String("to", to), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "SEND_FAILED", "Failed to send message", err.Error())
	}
	return ok(c, map[string]interface{}{"sent": true})
}
