// Package middleware provides the session, role and rate-limit guards
// wrapped around the HTTP surface.
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/simplestock/backend/internal/apperror"
	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/service"
	"github.com/simplestock/backend/internal/utils"
)

// Context keys under which the authenticated identity is stored.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// HeaderNewAccessToken carries a freshly minted access token back to the
// client after a silent refresh.
const HeaderNewAccessToken = "X-New-Access-Token"

// Session validates the bearer access token on protected routes. An
// expired-but-otherwise-valid token triggers a silent refresh from the
// refresh-token cookie: the cookie is rotated, the new access token is
// exposed via X-New-Access-Token and the request proceeds. A malformed or
// forged token never triggers a refresh.
func Session(cfg config.Config, auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return apperror.ErrNoToken
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if raw == "" {
				return apperror.ErrNoToken
			}

			claims, err := utils.ParseAccessToken(cfg.JWTSecret, raw)
			if err == nil {
				setIdentity(c, claims)
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return apperror.ErrInvalidToken
			}

			// Expired specifically: attempt a silent refresh.
			cookie, cerr := c.Cookie(utils.RefreshCookieName)
			if cerr != nil || cookie.Value == "" {
				return apperror.ErrTokenExpired
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			sess, rerr := auth.Refresh(ctx, cookie.Value)
			if rerr != nil {
				return rerr
			}

			utils.SetRefreshCookie(c, sess.RefreshToken, cfg.RefreshTTLDays, cfg.IsProd())
			c.Response().Header().Set(HeaderNewAccessToken, sess.AccessToken)

			newClaims, perr := utils.ParseAccessToken(cfg.JWTSecret, sess.AccessToken)
			if perr != nil {
				return apperror.Internal(perr)
			}
			setIdentity(c, newClaims)
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, claims *utils.AccessClaims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxEmail, claims.Email)
	c.Set(CtxRole, claims.Role)
}

// UserID returns the authenticated user id stored by Session, or 0.
func UserID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}
