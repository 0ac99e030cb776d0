// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/handler"
	"github.com/simplestock/backend/internal/middleware"
	"github.com/simplestock/backend/internal/model"
	"github.com/simplestock/backend/internal/service"
)

// RegisterRoutes registers routes that need no authentication state.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the auth surface under /auth. Public credential
// endpoints sit behind the rate limiter; /auth/me, /auth/logout and the
// audit log live behind the session middleware, the latter additionally
// behind the role guard.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, cfg config.Config, auth *service.AuthService, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/auth", limiter)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/magic-link", h.RequestMagicLink)
	g.GET("/magic-link/verify", h.VerifyMagicLink)
	g.POST("/send-otp", h.SendOTP)
	g.POST("/verify-otp", h.VerifyOTP)
	g.POST("/forgot-password", h.ForgotPassword)
	g.POST("/reset-password", h.ResetPassword)
	g.GET("/verify-email", h.VerifyEmail)

	session := middleware.Session(cfg, auth)
	g.GET("/me", h.Me, session)
	g.POST("/logout", h.Logout, session)
	g.GET("/logs", h.RecentLogs, session, middleware.RequireRole(model.RoleAdmin, model.RoleManager))
}
