package user

// SignUpRequest represents the request payload for registering a new account.
// Password is limited to 72 bytes, the most bcrypt will hash.
type SignUpRequest struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// SignUpResponse represents the response payload after registering an account.
type SignUpResponse struct {
	ID string
}

// Credentials is an email and password sign-in attempt.
type Credentials struct {
	Email    string
	Password string
}
