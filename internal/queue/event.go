// Package queue defines the mail events exchanged over the message broker
// and the background consumer that turns them into outbound email.
package queue

// MailQueueName is the durable queue auth mail events travel through.
const MailQueueName = "auth.mail"

// Kinds of mail the auth flows produce.
const (
	MailVerification  = "verification"
	MailMagicLink     = "magic_link"
	MailOTP           = "otp"
	MailPasswordReset = "password_reset"
)

// MailEvent is published by the auth service whenever an email should go
// out. It carries everything the consumer needs so no database access
// happens on the mail path.
type MailEvent struct {
	Kind        string `json:"kind"`
	To          string `json:"to"`
	Link        string `json:"link,omitempty"` // verification / magic-link / reset URL
	OTP         string `json:"otp,omitempty"`
	OTPType     string `json:"otp_type,omitempty"` // login | registration | password_reset
	RequestedAt string `json:"requested_at"`
}
