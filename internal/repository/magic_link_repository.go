package repository

import (
	"context"
	"database/sql"
	"time"
)

// MagicLinkRow mirrors a magic_links row. Links are keyed by email, not
// user id: the link itself proves control of the mailbox.
type MagicLinkRow struct {
	ID        uint64
	Email     string
	Token     string
	ExpiresAt time.Time
}

type MagicLinkRepo struct{ DB *sql.DB }

func NewMagicLinkRepo(db *sql.DB) *MagicLinkRepo { return &MagicLinkRepo{DB: db} }

// Store inserts a single-use login link token.
func (r *MagicLinkRepo) Store(ctx context.Context, email, token string, ttlMin int) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO magic_links (email, token, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(mins => $3))`,
		email, token, ttlMin)
	return err
}

// Find looks a link up by token, or sql.ErrNoRows.
func (r *MagicLinkRepo) Find(ctx context.Context, token string) (MagicLinkRow, error) {
	var row MagicLinkRow
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, token, expires_at FROM magic_links WHERE token = $1`,
		token,
	).Scan(&row.ID, &row.Email, &row.Token, &row.ExpiresAt)
	return row, err
}

// Delete consumes a link.
func (r *MagicLinkRepo) Delete(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM magic_links WHERE token = $1`, token)
	return err
}
