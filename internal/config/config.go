// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
)

// Config holds all runtime configuration. Required values are enforced by
// must(); tunables fall back to the documented defaults.
type Config struct {
	Env  string // "dev", "test" or "prod"
	Port string

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret       string
	AccessTTLMin    int // access token lifetime, minutes
	RefreshTTLDays  int // refresh token lifetime, days
	MagicLinkTTLMin int
	OTPTTLMin       int
	VerifyTTLHours  int // email verification token lifetime, hours
	ResetTTLMin     int // password reset token lifetime, minutes
	BcryptCost      int

	FrontendURL string // base URL embedded in magic-link / reset emails

	SMTPHost string // empty disables real delivery; mail is logged instead
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load reads configuration from the environment. Missing required variables
// abort the process with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:       must("JWT_SECRET"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		MagicLinkTTLMin: envInt("MAGIC_LINK_TTL_MIN", 60),
		OTPTTLMin:       envInt("OTP_TTL_MIN", 15),
		VerifyTTLHours:  envInt("VERIFY_TOKEN_TTL_HOURS", 24),
		ResetTTLMin:     envInt("RESET_TOKEN_TTL_MIN", 60),
		BcryptCost:      envInt("BCRYPT_COST", 10),

		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envStr("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: envStr("MAIL_FROM", "no-reply@simplestock.local"),
	}
}

// IsProd reports whether the app runs with production hardening (secure
// cookies, no error details in responses).
func (c Config) IsProd() bool { return c.Env == "prod" }

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
