// Package handler implements the HTTP surface of the auth subsystem.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"

	"github.com/simplestock/backend/internal/apperror"
	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/model"
	"github.com/simplestock/backend/internal/service"
	"github.com/simplestock/backend/internal/utils"
)

// AuditReader lists recent audit records for the admin log endpoint.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]model.AuthLog, error)
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
	Logs AuditReader
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService, logs AuditReader) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth, Logs: logs}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72), validation.By(passwordPolicy)),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type emailReq struct {
	Email string `json:"email"`
}

func (r emailReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type sendOTPReq struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (r sendOTPReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Type, validation.Required, validation.In(
			service.OTPTypeLogin, service.OTPTypeRegistration, service.OTPTypePasswordReset)),
	)
}

type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	Type  string `json:"type"`
}

func (r verifyOTPReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
		validation.Field(&r.Type, validation.Required, validation.In(
			service.OTPTypeLogin, service.OTPTypeRegistration, service.OTPTypePasswordReset)),
	)
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r resetPasswordReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 72), validation.By(passwordPolicy)),
	)
}

// passwordPolicy requires at least one uppercase letter, one lowercase
// letter and one digit. Length is enforced separately.
func passwordPolicy(value interface{}) error {
	s, _ := value.(string)
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errPasswordPolicy
	}
	return nil
}

var errPasswordPolicy = validation.NewError("password_policy",
	"must contain at least one uppercase letter, one lowercase letter, and one number")

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role}
}

// ----- Handlers -----

// Register creates a user and kicks off email verification.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration successful. Please verify your email.",
		"userId":  user.ID,
	})
}

// Login exchanges credentials for a session: access token in the body,
// refresh token in an HTTP-only cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	utils.SetRefreshCookie(c, sess.RefreshToken, h.Cfg.RefreshTTLDays, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": sess.AccessToken,
		"user":        toUserPart(sess.User),
	})
}

// Refresh rotates the refresh-token cookie and returns a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(utils.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return apperror.ErrInvalidOrExpiredToken
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, rerr := h.Auth.Refresh(ctx, cookie.Value)
	if rerr != nil {
		return rerr
	}
	utils.SetRefreshCookie(c, sess.RefreshToken, h.Cfg.RefreshTTLDays, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"accessToken": sess.AccessToken})
}

// RequestMagicLink always answers with the same generic message, whether or
// not the account exists.
func (h *AuthHandler) RequestMagicLink(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.RequestMagicLink(ctx, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "If an account exists with this email, a magic link has been sent.",
	})
}

// VerifyMagicLink consumes a link token and issues a full session.
func (h *AuthHandler) VerifyMagicLink(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperror.Validation("token is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sess, err := h.Auth.VerifyMagicLink(ctx, token)
	if err != nil {
		return err
	}
	utils.SetRefreshCookie(c, sess.RefreshToken, h.Cfg.RefreshTTLDays, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": sess.AccessToken,
		"user":        toUserPart(sess.User),
	})
}

// SendOTP generates and mails a one-time code.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req sendOTPReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.SendOTP(ctx, req.Email, req.Type, clientOf(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "If an account exists with this email, an OTP has been sent.",
	})
}

// VerifyOTP consumes a code. Login-type codes yield a full session; other
// types return the bare user to gate a follow-up step.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, sess, err := h.Auth.VerifyOTP(ctx, req.Email, req.OTP, req.Type, clientOf(c))
	if err != nil {
		return err
	}
	if sess == nil {
		return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(user)})
	}
	utils.SetRefreshCookie(c, sess.RefreshToken, h.Cfg.RefreshTTLDays, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": sess.AccessToken,
		"user":        toUserPart(user),
	})
}

// ForgotPassword mails reset instructions; same generic message either way.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email, clientOf(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "If an account exists with this email, password reset instructions have been sent.",
	})
}

// ResetPassword consumes a reset token and revokes all sessions.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid body")
	}
	if err := req.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword, clientOf(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password has been reset successfully"})
}

// VerifyEmail consumes a verification token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperror.Validation("token is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.VerifyEmail(ctx, token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Auth.CurrentUser(ctx, userIDFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(user)})
}

// Logout revokes the cookie's refresh token and clears the cookie. Both
// steps are idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if cookie, err := c.Cookie(utils.RefreshCookieName); err == nil {
		if err := h.Auth.Logout(ctx, cookie.Value); err != nil {
			return err
		}
	}
	utils.ClearRefreshCookie(c, h.Cfg.IsProd())
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// RecentLogs returns the newest audit records. Admin/manager only; the
// route applies the role guard.
func (h *AuthHandler) RecentLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	logs, err := h.Logs.ListRecent(ctx, limit)
	if err != nil {
		return apperror.Internal(err)
	}
	out := make([]echo.Map, 0, len(logs))
	for _, l := range logs {
		out = append(out, echo.Map{
			"userId":    l.UserID,
			"action":    l.Action,
			"status":    l.Status,
			"ipAddress": l.IPAddress,
			"userAgent": l.UserAgent,
			"details":   l.Details,
			"createdAt": l.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"logs": out})
}

// ----- helpers -----

// reqCtx bounds every store round-trip of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func clientOf(c echo.Context) service.Client {
	return service.Client{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func userIDFrom(c echo.Context) uint64 {
	if v, ok := c.Get("user_id").(uint64); ok {
		return v
	}
	return 0
}
