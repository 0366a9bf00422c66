package user

import (
	"context"

	domain "mailgate/internal/domain/user"
)

// Usecase defines the interface for account operations.
type Usecase interface {
	SignUp(ctx context.Context, in SignUpRequest) (*SignUpResponse, error)
	Authorize(ctx context.Context, in Credentials) (*domain.User, error)
}
