package oauth

import "time"

// PendingLogin is what the server remembers between redirecting a browser to
// a provider and receiving the provider's callback.
type PendingLogin struct {
	Provider     string    `json:"provider"`
	CodeVerifier string    `json:"code_verifier"`
	CallbackURL  string    `json:"callback_url"`
	CreatedAt    time.Time `json:"created_at"`
}
