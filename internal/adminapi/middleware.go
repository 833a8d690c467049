package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/talkincode/wabridge/config"
	"github.com/talkincode/wabridge/internal/store"
)

const ctxUserIDKey = "auth_user_id"

// AuthMiddleware validates the bearer token: the JWT signature must check
// out and the token must still exist as an active key row.
func AuthMiddleware(cfg *config.AppConfig, db store.Database) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
			if token == "" {
				return fail(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization required", nil)
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(cfg.Web.Secret), nil
			})
			if err != nil {
				return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token rejected", nil)
			}

			key, err := db.ApiKeys().GetByKey(c.Request().Context(), token)
			if err != nil || !key.Valid(time.Now()) {
				return fail(c, http.StatusUnauthorized, "REVOKED_TOKEN", "Token expired or revoked", nil)
			}

			c.Set(ctxUserIDKey, key.UserID)
			return next(c)
		}
	}
}
