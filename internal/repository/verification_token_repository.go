package repository

import (
	"context"
	"database/sql"
	"time"
)

// VerificationTokenRow mirrors a verification_tokens row.
type VerificationTokenRow struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
}

// VerificationTokenRepo stores email verification tokens created at
// registration. Single use is enforced by deletion after the email flag is
// set, so no used-marker column exists.
type VerificationTokenRepo struct{ DB *sql.DB }

func NewVerificationTokenRepo(db *sql.DB) *VerificationTokenRepo {
	return &VerificationTokenRepo{DB: db}
}

func (r *VerificationTokenRepo) Store(ctx context.Context, userID uint64, token string, ttlHours int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO verification_tokens (user_id, token, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(hours => $3))`,
		userID, token, ttlHours)
	return err
}

func (r *VerificationTokenRepo) Find(ctx context.Context, token string) (VerificationTokenRow, error) {
	var row VerificationTokenRow
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at FROM verification_tokens WHERE token = $1`,
		token,
	).Scan(&row.ID, &row.UserID, &row.Token, &row.ExpiresAt)
	return row, err
}

func (r *VerificationTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE token = $1`, token)
	return err
}
