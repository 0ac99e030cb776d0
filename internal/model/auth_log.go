package model

import "time"

// Audit actions recorded in auth_logs. The table is append-only: the core
// inserts and reads, never updates or deletes.
const (
	ActionOTPRequested           = "otp_requested"
	ActionOTPVerificationFailed  = "otp_verification_failed"
	ActionOTPVerificationSuccess = "otp_verification_success"
	ActionLoginWithOTP           = "login_with_otp"
	ActionPasswordResetRequested = "password_reset_requested"
	ActionPasswordResetCompleted = "password_reset_completed"
)

// AuthLog is one row of the append-only audit trail.
type AuthLog struct {
	ID        uint64
	UserID    uint64
	Action    string
	Status    string // "success" | "failure"
	IPAddress string
	UserAgent string
	Details   string // JSON blob
	CreatedAt time.Time
}
