package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/webserver"
)

func registerChatbotRoutes() {
	webserver.ApiPOST("/chatbot", postChatbot)
}

type chatbotRequest struct {
	Message     string `json:"message"`
	Sender      string `json:"sender"`
	SessionName string `json:"sessionName"`
}

// postChatbot queries the chatbot directly, bypassing WhatsApp, and
// records the exchange in the message history.
func postChatbot(c echo.Context) error {
	var req chatbotRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" || req.SessionName == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "message and sessionName are required", nil)
	}

	ctx := c.Request().Context()
	result := api.responder.Ask(ctx, req.Message, req.Sender, req.SessionName)
	if !result.Success {
		return fail(c, http.StatusBadGateway, "CHATBOT_UNAVAILABLE", result.Reply, nil)
	}

	if sess, err := api.db.Sessions().GetByName(ctx, req.SessionName); err == nil {
		content := req.Message
		reply := result.Reply
		msg := &domain.Message{
			SessionID: sess.ID,
			Sender:    req.Sender,
			Content:   &content,
			Reply:     &reply,
			Type:      domain.MessageText,
			Timestamp: time.Now(),
		}
		if err := api.db.Messages().Create(ctx, msg); err != nil {
			zap.L().Error("adminapi: chatbot persist failed", zap.Error(err))
		}
	} else if err != store.ErrNotFound {
		zap.L().Warn("adminapi: chatbot session lookup failed",
			zap.String("session", req.SessionName), zap.Error(err))
	}

	return ok(c, map[string]interface{}{
		"reply":         result.Reply,
		"response_time": result.ResponseTime.Milliseconds(),
	})
}
