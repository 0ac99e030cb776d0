package repository

import (
	"context"
	"database/sql"
	"time"
)

// OTPRow is the subset of otp_tokens the verifier needs. Expiry is checked
// by the service against wall-clock time so the boundary is testable.
type OTPRow struct {
	ID        uint64
	Token     string
	ExpiresAt time.Time
}

// OTPRepo stores one-time numeric codes keyed by (user, type). Only the
// most recently created row per pair is ever considered valid.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Store inserts a code with a store-computed expiry.
func (r *OTPRepo) Store(ctx context.Context, userID uint64, code, otpType string, ttlMin int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO otp_tokens (user_id, token, type, expires_at)
		 VALUES ($1, $2, $3, NOW() + make_interval(mins => $4))`,
		userID, code, otpType, ttlMin)
	return err
}

// FindLatest returns the newest code for (user, type), or sql.ErrNoRows.
func (r *OTPRepo) FindLatest(ctx context.Context, userID uint64, otpType string) (OTPRow, error) {
	var row OTPRow
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, token, expires_at FROM otp_tokens
		 WHERE user_id = $1 AND type = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, otpType,
	).Scan(&row.ID, &row.Token, &row.ExpiresAt)
	return row, err
}

// Delete removes all codes for (user, type). Called immediately on a
// successful match; a verified code must never be replayable.
func (r *OTPRepo) Delete(ctx context.Context, userID uint64, otpType string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM otp_tokens WHERE user_id = $1 AND type = $2`,
		userID, otpType)
	return err
}
