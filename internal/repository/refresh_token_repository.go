package repository

import (
	"context"
	"database/sql"
)

// RefreshTokenRepo persists opaque refresh tokens. A token is valid exactly
// while its row exists and expires_at lies in the future; revocation is row
// deletion. Expiries are computed by the store (NOW() + interval) so the
// database clock is the single source of truth.
type RefreshTokenRepo struct{ DB *sql.DB }

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo { return &RefreshTokenRepo{DB: db} }

// Store inserts a refresh token row with a store-computed expiry.
func (r *RefreshTokenRepo) Store(ctx context.Context, userID uint64, token string, ttlDays int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(days => $3))`,
		userID, token, ttlDays)
	return err
}

// Find returns the owning user of a live (present and unexpired) token.
// Missing and expired look identical to callers: sql.ErrNoRows.
func (r *RefreshTokenRepo) Find(ctx context.Context, token string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token = $1 AND expires_at > NOW()`,
		token,
	).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Rotate atomically consumes oldToken and inserts newToken for the same
// user. Both statements run in one transaction: under a concurrent refresh
// race the first commit wins and the loser observes zero deleted rows, which
// is reported as sql.ErrNoRows so a rotated-away token can never be replayed.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, oldToken, newToken string, userID uint64, ttlDays int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2`,
		oldToken, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(days => $3))`,
		userID, newToken, ttlDays); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a token row. Deleting an absent token is not an error,
// which makes logout idempotent.
func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

// DeleteAllForUser revokes every session of a user. Called after a password
// reset so stolen refresh tokens die with the old credential.
func (r *RefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}
