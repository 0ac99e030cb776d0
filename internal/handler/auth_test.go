package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/simplestock/backend/internal/apperror"
	"github.com/simplestock/backend/internal/config"
	"github.com/simplestock/backend/internal/model"
	"github.com/simplestock/backend/internal/service"
	"github.com/simplestock/backend/internal/utils"
)

// Handler tests exercise validation and the HTTP shape (cookies, envelopes).
// Orchestration behavior itself is covered by the service tests, so the
// stubs below implement only what the paths under test reach.

type stubUsers struct {
	user model.User
}

func (s *stubUsers) Create(context.Context, string, string, string) (model.User, error) {
	return model.User{}, errors.New("not implemented")
}
func (s *stubUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	if email == s.user.Email {
		return s.user, nil
	}
	return model.User{}, sql.ErrNoRows
}
func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return model.User{}, sql.ErrNoRows
}
func (s *stubUsers) UpdatePassword(context.Context, uint64, string) error { return nil }
func (s *stubUsers) MarkEmailVerified(context.Context, uint64) error      { return nil }

type stubTokens struct {
	stored  []string
	deleted []string
}

func (s *stubTokens) Store(_ context.Context, _ uint64, token string, _ int) error {
	s.stored = append(s.stored, token)
	return nil
}
func (s *stubTokens) Find(context.Context, string) (uint64, error) { return 0, sql.ErrNoRows }
func (s *stubTokens) Rotate(context.Context, string, string, uint64, int) error {
	return sql.ErrNoRows
}
func (s *stubTokens) Delete(_ context.Context, token string) error {
	s.deleted = append(s.deleted, token)
	return nil
}
func (s *stubTokens) DeleteAllForUser(context.Context, uint64) error { return nil }

func handlerTestConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "handler-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     10,
	}
}

const handlerTestPassword = "Abcd1234"

func newTestHandler(t *testing.T) (*AuthHandler, *stubTokens) {
	t.Helper()
	hash, err := utils.HashPassword(handlerTestPassword, 10)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	tokens := &stubTokens{}
	cfg := handlerTestConfig()
	auth := &service.AuthService{
		Cfg: cfg,
		Users: &stubUsers{user: model.User{
			ID: 3, Email: "pat@example.com", PasswordHash: hash, Role: model.RoleStaff,
		}},
		Tokens: tokens,
	}
	return NewAuthHandler(cfg, auth, nil), tokens
}

func postJSON(path, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"password":"Abcd1234"}`},
		{"bad email", `{"email":"not-an-email","password":"Abcd1234"}`},
		{"short password", `{"email":"a@x.com","password":"Ab1"}`},
		{"no uppercase", `{"email":"a@x.com","password":"abcd1234"}`},
		{"no digit", `{"email":"a@x.com","password":"Abcdefgh"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := postJSON("/auth/register", tc.body)
			err := h.Register(e.NewContext(req, rec))

			var ae *apperror.Error
			if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
				t.Fatalf("expected a 400 validation error, got %v", err)
			}
		})
	}
}

func TestSendOTPRejectsUnknownType(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req, rec := postJSON("/auth/send-otp", `{"email":"pat@example.com","type":"mfa"}`)

	err := h.SendOTP(e.NewContext(req, rec))
	var ae *apperror.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		t.Fatalf("unknown OTP type must fail validation, got %v", err)
	}
}

func TestVerifyOTPRejectsNonNumericCode(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req, rec := postJSON("/auth/verify-otp", `{"email":"pat@example.com","otp":"12ab56","type":"login"}`)

	err := h.VerifyOTP(e.NewContext(req, rec))
	var ae *apperror.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		t.Fatalf("non-numeric OTP must fail validation, got %v", err)
	}
}

func TestLoginSetsRefreshCookie(t *testing.T) {
	h, tokens := newTestHandler(t)
	e := echo.New()
	req, rec := postJSON("/auth/login", `{"email":"pat@example.com","password":"Abcd1234"}`)

	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == utils.RefreshCookieName {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("refreshToken cookie not set")
	}
	if !cookie.HttpOnly {
		t.Fatal("refresh cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("SameSite = %v", cookie.SameSite)
	}
	if len(tokens.stored) != 1 || tokens.stored[0] != cookie.Value {
		t.Fatalf("cookie value %q not the persisted token %v", cookie.Value, tokens.stored)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID    uint64 `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if body.AccessToken == "" || body.User.ID != 3 || body.User.Email != "pat@example.com" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req, rec := postJSON("/auth/login", `{"email":"PAT@Example.COM","password":"Abcd1234"}`)

	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("mixed-case email rejected: %v", err)
	}
}

func TestLogoutWithoutCookie(t *testing.T) {
	h, tokens := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Logout without cookie must succeed: %v", err)
	}
	if len(tokens.deleted) != 0 {
		t.Fatal("delete issued with no cookie present")
	}

	// The cookie is still cleared so stale clients converge.
	var cleared bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == utils.RefreshCookieName && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("refresh cookie not cleared")
	}
}

func TestLogoutRevokesCookieToken(t *testing.T) {
	h, tokens := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookieName, Value: "live-refresh"})
	rec := httptest.NewRecorder()

	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "live-refresh" {
		t.Fatalf("deleted = %v", tokens.deleted)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
	rec := httptest.NewRecorder()

	err := h.Refresh(e.NewContext(req, rec))
	if !errors.Is(err, apperror.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestVerifyEmailRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify-email", nil)
	rec := httptest.NewRecorder()

	err := h.VerifyEmail(e.NewContext(req, rec))
	var ae *apperror.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusBadRequest {
		t.Fatalf("missing token must be a 400, got %v", err)
	}
}
