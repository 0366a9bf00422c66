package user

import "time"

// User represents a credentialed account in the system.
type User struct {
	ID        string    // ID is the unique identifier for the user
	Name      string    // Name is the optional display name of the user
	Email     string    // Email is the address the user signs in with
	Password  string    `json:"-"` // Password holds the bcrypt hash of the user's secret
	CreatedAt time.Time // CreatedAt is when the account was registered
}
