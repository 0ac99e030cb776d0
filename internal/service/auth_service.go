// Package service contains the auth orchestrator: the façade tying the
// credential store, token issuance and mail dispatch together for each auth
// use case.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/simplestock/backend/internal/apperror"
	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/model"
	"github.com/simplestock/backend/internal/queue"
	"github.com/simplestock/backend/internal/repository"
	"github.com/simplestock/backend/internal/utils"
)

// OTP types accepted by the send/verify endpoints.
const (
	OTPTypeLogin         = "login"
	OTPTypeRegistration  = "registration"
	OTPTypePasswordReset = "password_reset"
)

// ValidOTPType reports whether t is a known OTP type.
func ValidOTPType(t string) bool {
	switch t {
	case OTPTypeLogin, OTPTypeRegistration, OTPTypePasswordReset:
		return true
	}
	return false
}

// Store interfaces mirror the repository layer one to one. The service only
// depends on these so tests can substitute in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, role string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id uint64) error
}

type RefreshTokenStore interface {
	Store(ctx context.Context, userID uint64, token string, ttlDays int) error
	Find(ctx context.Context, token string) (uint64, error)
	Rotate(ctx context.Context, oldToken, newToken string, userID uint64, ttlDays int) error
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

type OTPStore interface {
	Store(ctx context.Context, userID uint64, code, otpType string, ttlMin int) error
	FindLatest(ctx context.Context, userID uint64, otpType string) (repository.OTPRow, error)
	Delete(ctx context.Context, userID uint64, otpType string) error
}

type MagicLinkStore interface {
	Store(ctx context.Context, email, token string, ttlMin int) error
	Find(ctx context.Context, token string) (repository.MagicLinkRow, error)
	Delete(ctx context.Context, token string) error
}

type VerificationTokenStore interface {
	Store(ctx context.Context, userID uint64, token string, ttlHours int) error
	Find(ctx context.Context, token string) (repository.VerificationTokenRow, error)
	Delete(ctx context.Context, token string) error
}

type PasswordResetStore interface {
	Store(ctx context.Context, userID uint64, token string, ttlMin int) error
	FindValid(ctx context.Context, token string) (uint64, error)
	MarkUsed(ctx context.Context, token string) error
}

type AuthLogStore interface {
	Insert(ctx context.Context, userID uint64, action, status, ip, userAgent string, details map[string]any) error
}

// MailPublisher delivers a mail event to the broker. Implementations must
// not block the request path beyond the publish itself; failures are logged
// by the service and never propagated.
type MailPublisher interface {
	Publish(ctx context.Context, ev queue.MailEvent) error
}

// Client identifies the calling device for audit records.
type Client struct {
	IP        string
	UserAgent string
}

// Session is a full authentication result: the user plus a signed access
// token and a persisted refresh token.
type Session struct {
	User         model.User
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
}

// AuthService orchestrates every auth flow. All fields must be populated;
// construct it once in main and share it across handlers and middleware.
type AuthService struct {
	Cfg           config.Config
	Users         UserStore
	Tokens        RefreshTokenStore
	OTPs          OTPStore
	Links         MagicLinkStore
	Verifications VerificationTokenStore
	Resets        PasswordResetStore
	Logs          AuthLogStore
	Mail          MailPublisher
}

// Register creates a user with the lowest-privilege role, stores an email
// verification token and dispatches the verification mail. Mail dispatch is
// fire-and-forget: the user row exists whether or not the email goes out.
func (s *AuthService) Register(ctx context.Context, email, password string) (model.User, error) {
	hash, err := utils.HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		return model.User{}, apperror.Internal(err)
	}

	user, err := s.Users.Create(ctx, email, hash, model.RoleStaff)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, apperror.ErrDuplicateEmail
		}
		return model.User{}, apperror.Internal(err)
	}

	token := utils.NewOpaqueToken()
	if err := s.Verifications.Store(ctx, user.ID, token, s.Cfg.VerifyTTLHours); err != nil {
		return model.User{}, apperror.Internal(err)
	}

	s.sendMail(ctx, queue.MailEvent{
		Kind: queue.MailVerification,
		To:   user.Email,
		Link: fmt.Sprintf("%s/auth/verify-email?token=%s", s.Cfg.FrontendURL, token),
	})
	return user, nil
}

// Login verifies a password and issues a full session. Unknown email and
// wrong password produce the identical error to prevent user enumeration.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrInvalidCredentials
		}
		return Session{}, apperror.Internal(err)
	}
	if !utils.VerifyPassword(user.PasswordHash, password) {
		return Session{}, apperror.ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token and mints a new access token. Rotation is
// a single store transaction; when two requests race on the same token the
// first commit wins and the loser gets InvalidOrExpiredToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	userID, err := s.Tokens.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrInvalidOrExpiredToken
		}
		return Session{}, apperror.Internal(err)
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrNotFound
		}
		return Session{}, apperror.Internal(err)
	}

	newToken := utils.NewOpaqueToken()
	if err := s.Tokens.Rotate(ctx, refreshToken, newToken, user.ID, s.Cfg.RefreshTTLDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrInvalidOrExpiredToken
		}
		return Session{}, apperror.Internal(err)
	}

	access, err := utils.NewAccessToken(s.Cfg.JWTSecret, user, s.Cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperror.Internal(err)
	}
	return Session{User: user, AccessToken: access.Token, AccessExp: access.Exp, RefreshToken: newToken}, nil
}

// RequestMagicLink stores a login link and mails it. Unknown emails are a
// silent no-op: no row, no mail, no error.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperror.Internal(err)
	}

	token := utils.NewOpaqueToken()
	if err := s.Links.Store(ctx, user.Email, token, s.Cfg.MagicLinkTTLMin); err != nil {
		return apperror.Internal(err)
	}
	s.sendMail(ctx, queue.MailEvent{
		Kind: queue.MailMagicLink,
		To:   user.Email,
		Link: fmt.Sprintf("%s/auth/verify-magic-link?token=%s", s.Cfg.FrontendURL, token),
	})
	return nil
}

// VerifyMagicLink consumes a link and issues a full session.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (Session, error) {
	link, err := s.Links.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrInvalidOrExpiredToken
		}
		return Session{}, apperror.Internal(err)
	}
	if time.Now().After(link.ExpiresAt) {
		return Session{}, apperror.ErrInvalidOrExpiredToken
	}

	user, err := s.Users.GetByEmail(ctx, link.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, apperror.ErrNotFound
		}
		return Session{}, apperror.Internal(err)
	}

	// Consume before issuing tokens so a partial failure cannot leave a
	// replayable link behind.
	if err := s.Links.Delete(ctx, token); err != nil {
		return Session{}, apperror.Internal(err)
	}
	return s.issueSession(ctx, user)
}

// SendOTP generates and mails a one-time code. Unknown emails are a silent
// no-op for enumeration resistance.
func (s *AuthService) SendOTP(ctx context.Context, email, otpType string, client Client) error {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperror.Internal(err)
	}

	code, err := utils.NewOTP(6)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.OTPs.Store(ctx, user.ID, code, otpType, s.Cfg.OTPTTLMin); err != nil {
		return apperror.Internal(err)
	}
	s.sendMail(ctx, queue.MailEvent{
		Kind:    queue.MailOTP,
		To:      user.Email,
		OTP:     code,
		OTPType: otpType,
	})
	s.audit(ctx, user.ID, model.ActionOTPRequested, "success", client, map[string]any{"type": otpType})
	return nil
}

// VerifyOTP checks the most recent code for (user, type) and consumes it on
// success before anything else happens. For login-type codes it also issues
// a full session; other types return just the user and gate a follow-up
// step in the UI.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code, otpType string, client Client) (model.User, *Session, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, nil, apperror.ErrInvalidOrExpiredOTP
		}
		return model.User{}, nil, apperror.Internal(err)
	}

	row, err := s.OTPs.FindLatest(ctx, user.ID, otpType)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, nil, apperror.Internal(err)
	}
	if err != nil || row.Token != code || time.Now().After(row.ExpiresAt) {
		s.audit(ctx, user.ID, model.ActionOTPVerificationFailed, "failure", client, map[string]any{"type": otpType})
		return model.User{}, nil, apperror.ErrInvalidOrExpiredOTP
	}

	// Single use: the code dies here even if session issuance below fails.
	if err := s.OTPs.Delete(ctx, user.ID, otpType); err != nil {
		return model.User{}, nil, apperror.Internal(err)
	}
	s.audit(ctx, user.ID, model.ActionOTPVerificationSuccess, "success", client, map[string]any{"type": otpType})

	if otpType != OTPTypeLogin {
		return user, nil, nil
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		return model.User{}, nil, err
	}
	s.audit(ctx, user.ID, model.ActionLoginWithOTP, "success", client, nil)
	return user, &sess, nil
}

// Logout revokes the presented refresh token. Revoking an absent token is
// not an error, so a double logout succeeds quietly.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Tokens.Delete(ctx, refreshToken); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// ForgotPassword stores a reset token and mails the reset link. Unknown
// emails are a silent no-op.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, client Client) error {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperror.Internal(err)
	}

	token := utils.NewOpaqueToken()
	if err := s.Resets.Store(ctx, user.ID, token, s.Cfg.ResetTTLMin); err != nil {
		return apperror.Internal(err)
	}
	s.sendMail(ctx, queue.MailEvent{
		Kind: queue.MailPasswordReset,
		To:   user.Email,
		Link: fmt.Sprintf("%s/auth/reset-password?token=%s", s.Cfg.FrontendURL, token),
	})
	s.audit(ctx, user.ID, model.ActionPasswordResetRequested, "success", client, map[string]any{"email": user.Email})
	return nil
}

// ResetPassword consumes a reset token, replaces the password hash and
// revokes every live session of the user so a credential change forces
// re-login everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, client Client) error {
	userID, err := s.Resets.FindValid(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrInvalidOrExpiredToken
		}
		return apperror.Internal(err)
	}

	hash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.Internal(err)
	}
	if err := s.Resets.MarkUsed(ctx, token); err != nil {
		return apperror.Internal(err)
	}
	s.audit(ctx, userID, model.ActionPasswordResetCompleted, "success", client, nil)

	if err := s.Tokens.DeleteAllForUser(ctx, userID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// VerifyEmail flips the user's email_verified flag and deletes the token.
// Deletion enforces single use: a second call with the same token fails.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	row, err := s.Verifications.Find(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrInvalidOrExpiredToken
		}
		return apperror.Internal(err)
	}
	if time.Now().After(row.ExpiresAt) {
		return apperror.ErrInvalidOrExpiredToken
	}

	if err := s.Users.MarkEmailVerified(ctx, row.UserID); err != nil {
		return apperror.Internal(err)
	}
	if err := s.Verifications.Delete(ctx, token); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

// CurrentUser loads the user behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint64) (model.User, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apperror.ErrNotFound
		}
		return model.User{}, apperror.Internal(err)
	}
	return user, nil
}

// issueSession mints an access token and persists a fresh refresh token.
func (s *AuthService) issueSession(ctx context.Context, user model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.Cfg.JWTSecret, user, s.Cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperror.Internal(err)
	}
	refresh := utils.NewOpaqueToken()
	if err := s.Tokens.Store(ctx, user.ID, refresh, s.Cfg.RefreshTTLDays); err != nil {
		return Session{}, apperror.Internal(err)
	}
	return Session{User: user, AccessToken: access.Token, AccessExp: access.Exp, RefreshToken: refresh}, nil
}

// sendMail publishes a mail event. Failures are logged and swallowed; mail
// never blocks or fails the primary response.
func (s *AuthService) sendMail(ctx context.Context, ev queue.MailEvent) {
	if s.Mail == nil {
		return
	}
	ev.RequestedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.Mail.Publish(ctx, ev); err != nil {
		log.Printf("auth: mail publish failed (kind=%s to=%s): %v", ev.Kind, ev.To, err)
	}
}

// audit appends to auth_logs, best-effort. An audit failure must never
// block or change the primary response.
func (s *AuthService) audit(ctx context.Context, userID uint64, action, status string, client Client, details map[string]any) {
	if s.Logs == nil {
		return
	}
	if err := s.Logs.Insert(ctx, userID, action, status, client.IP, client.UserAgent, details); err != nil {
		log.Printf("auth: audit insert failed (action=%s user=%d): %v", action, userID, err)
	}
}
