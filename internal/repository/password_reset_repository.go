package repository

import (
	"context"
	"database/sql"
)

// PasswordResetRepo stores reset tokens. Unlike the other single-use tokens
// these are consumed by setting used_at instead of deletion, preserving an
// audit trail of completed resets. Validity is evaluated entirely in SQL:
// used_at IS NULL AND expires_at > NOW().
type PasswordResetRepo struct{ DB *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{DB: db} }

func (r *PasswordResetRepo) Store(ctx context.Context, userID uint64, token string, ttlMin int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(mins => $3))`,
		userID, token, ttlMin)
	return err
}

// FindValid returns the owning user of an unused, unexpired token, or
// sql.ErrNoRows for anything else.
func (r *PasswordResetRepo) FindValid(ctx context.Context, token string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM password_reset_tokens
		 WHERE token = $1 AND used_at IS NULL AND expires_at > NOW()`,
		token,
	).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// MarkUsed consumes the token. The row is kept.
func (r *PasswordResetRepo) MarkUsed(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = NOW() WHERE token = $1`,
		token)
	return err
}
