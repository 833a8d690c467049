package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/wabridge/internal/domain"
	"github.com/talkincode/wabridge/internal/store"
	"github.com/talkincode/wabridge/internal/webserver"
	"github.com/talkincode/wabridge/pkg/common"
)

const tokenTTL = 30 * 24 * time.Hour

func registerAuthRoutes() {
	webserver.PubPOST("/auth/register", postRegister)
	webserver.PubPOST("/auth/login", postLogin)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Sender   string `json:"sender"`
	Password string `json:"password"`
}

func postRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "MISSING_FIELDS", "username and password are required", nil)
	}

	ctx := c.Request().Context()
	if _, err := api.db.Users().GetByUsername(ctx, req.Username); err == nil {
		return fail(c, http.StatusConflict, "USER_EXISTS", "Username already registered", nil)
	}

	user := &domain.User{
		Username: req.Username,
		Email:    req.Email,
		Sender:   req.Sender,
		Password: common.Sha256HashWithSalt(req.Password, common.GetSecretSalt()),
	}
	if err := api.db.Users().Create(ctx, user); err != nil {
		zap.L().Error("adminapi: register failed", zap.String("username", req.Username), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "REGISTER_FAILED", "Failed to create user", nil)
	}
	return ok(c, map[string]interface{}{"id": user.ID, "username": user.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func postLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}

	ctx := c.Request().Context()
	user, err := api.db.Users().GetByUsername(ctx, req.Username)
	if err == store.ErrNotFound {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid username or password", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to query user", nil)
	}
	if user.Password != common.Sha256HashWithSalt(req.Password, common.GetSecretSalt()) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Invalid username or password", nil)
	}

	expires := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub": user.ID,
		"usr": user.Username,
		"exp": expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(api.cfg.Web.Secret))
	if err != nil {
		zap.L().Error("adminapi: token sign failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to issue token", nil)
	}

	key := &domain.ApiKey{
		UserID:    user.ID,
		Name:      "login:" + user.Username,
		Key:       token,
		IsActive:  true,
		ExpiresAt: expires,
	}
	if err := api.db.ApiKeys().Create(ctx, key); err != nil {
		zap.L().Error("adminapi: store token failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to persist token", nil)
	}

	return ok(c, map[string]interface{}{
		"token":      token,
		"expires_at": expires,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}
