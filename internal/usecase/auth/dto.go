package auth

import "mailgate/internal/domain/session"

// ProviderInfo describes a configured social provider to the browser.
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

// CallbackRequest carries the query parameters of a provider callback.
type CallbackRequest struct {
	Provider string
	Code     string
	State    string
	Error    string
}

// LoginResult is a completed social sign-in.
type LoginResult struct {
	Identity    session.Identity
	CallbackURL string
}
