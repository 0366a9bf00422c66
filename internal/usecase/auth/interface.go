package auth

import "context"

// Usecase defines social sign-in operations.
type Usecase interface {
	Providers() []ProviderInfo
	BeginLogin(ctx context.Context, providerID, callbackURL string) (string, error)
	CompleteLogin(ctx context.Context, in CallbackRequest) (*LoginResult, error)
}
