package session

import "time"

// CredentialsProvider identifies sessions opened with email and password.
const CredentialsProvider = "credentials"

// Identity is the signed-in principal carried by a session.
type Identity struct {
	UserID   string
	Name     string
	Email    string
	Provider string
}

// Session is an issued, not yet expired, sign-in.
type Session struct {
	Identity  Identity
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
