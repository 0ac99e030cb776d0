package utils

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RefreshCookieName is the HTTP-only cookie carrying the opaque refresh
// token. It is the only place the refresh token lives on the client.
const RefreshCookieName = "refreshToken"

// SetRefreshCookie attaches the refresh token cookie to the response.
// SameSite is strict and the cookie is marked secure outside dev.
func SetRefreshCookie(c echo.Context, token string, ttlDays int, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   ttlDays * 24 * 60 * 60,
		Expires:  time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour),
	})
}

// ClearRefreshCookie expires the refresh token cookie immediately.
func ClearRefreshCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}
