package model

import "time"

// Roles understood by the application. New users always start as staff;
// promotion to manager or admin happens out of band.
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// User represents a row in the `users` table. The json tags are omitted
// because handlers define separate response types with their own shapes.
//
// EmailVerified flips to true exactly once, when a verification token is
// consumed; it is never reset.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email (unique, stored lowercase)
	PasswordHash  string    // users.password_hash
	Role          string    // users.role (staff | manager | admin)
	EmailVerified bool      // users.email_verified
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	switch s {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}
