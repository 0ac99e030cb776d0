package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/simplestock/backend/internal/model"
)

// AuthLogRepo appends to the auth_logs audit trail. Inserts are best-effort
// from the caller's perspective; nothing here ever updates or deletes.
type AuthLogRepo struct{ DB *sql.DB }

func NewAuthLogRepo(db *sql.DB) *AuthLogRepo { return &AuthLogRepo{DB: db} }

// Insert appends one audit record. details is marshalled to JSON; a nil map
// is stored as an empty object.
func (r *AuthLogRepo) Insert(ctx context.Context, userID uint64, action, status, ip, userAgent string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	blob, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO auth_logs (user_id, action, status, ip_address, user_agent, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, action, status, ip, userAgent, blob)
	return err
}

// ListRecent returns the newest audit records, capped at limit.
func (r *AuthLogRepo) ListRecent(ctx context.Context, limit int) ([]model.AuthLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, action, status, COALESCE(ip_address, ''), COALESCE(user_agent, ''), details::text, created_at
		 FROM auth_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuthLog
	for rows.Next() {
		var l model.AuthLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Status, &l.IPAddress, &l.UserAgent, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
