package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	domain "mailgate/internal/domain/user"
	apperrors "mailgate/pkg/errors"
	"mailgate/pkg/logger"
)

// Repository defines the interface for user data access operations.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (string, error)          // Create a new user
	GetByEmail(ctx context.Context, email string) (*domain.User, error) // Retrieve user by email, nil when absent
}

// Option customizes a Service.
type Option func(*Service)

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// Service implements account registration and credential checks.
type Service struct {
	repo      Repository
	log       *zap.Logger
	validate  *validator.Validate
	hashCost  int
	dummyHash []byte
}

// New creates a new account service backed by the given repository.
func New(r Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     r,
		log:      log,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Unknown accounts are still compared against a hash so both failure
	// paths cost the same.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mailgate-timing-equalizer"), s.hashCost)
	return s
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError(validationErrors[0].Field(), strings.Join(messages, ", "))
}

// SignUp registers a new credentialed account after checking email uniqueness.
func (s *Service) SignUp(ctx context.Context, in SignUpRequest) (*SignUpResponse, error) {
	log := logger.WithContext(ctx, s.log)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	log.Info("signing up user", zap.String("email", in.Email))

	if in.Name == "" || in.Email == "" || in.Password == "" {
		log.Warn("signup missing fields")
		return nil, apperrors.NewValidationError("", "Name, email and password are required")
	}
	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", in.Email))
		return nil, apperrors.NewAlreadyExistsError("user", "User already exists with this email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	id, err := s.repo.Create(ctx, &domain.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: string(hash),
	})
	if err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	log.Info("user signed up", zap.String("id", id))
	return &SignUpResponse{ID: id}, nil
}

// Authorize checks an email and password pair.
// Every failure is reported as ErrInvalidCredentials.
func (s *Service) Authorize(ctx context.Context, in Credentials) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)
	email := strings.TrimSpace(in.Email)

	if email == "" || in.Password == "" {
		log.Warn("credentials sign-in missing fields")
		return nil, apperrors.ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to look up user", err)
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		log.Warn("credentials sign-in for unknown email", zap.String("email", email))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)); err != nil {
		log.Warn("credentials sign-in with wrong password", zap.String("id", u.ID))
		return nil, apperrors.ErrInvalidCredentials
	}

	log.Info("credentials sign-in succeeded", zap.String("id", u.ID))
	return &domain.User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}, nil
}
