package auth

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	oauthadapter "mailgate/internal/adapter/oauth"
	domain "mailgate/internal/domain/oauth"
	"mailgate/internal/domain/session"
	apperrors "mailgate/pkg/errors"
	"mailgate/pkg/logger"
)

// DefaultCallbackURL is where a browser lands after a successful social login.
const DefaultCallbackURL = "/dashboard"

// ErrInvalidState is returned when a callback's state is unknown, expired,
// already used or bound to a different provider.
var ErrInvalidState = apperrors.NewUnauthorizedError("invalid or expired oauth state")

// StateStore keeps pending logins between the redirect and the callback.
type StateStore interface {
	Save(ctx context.Context, state string, pending domain.PendingLogin, ttl time.Duration) error
	Take(ctx context.Context, state string) (*domain.PendingLogin, error)
}

// Provider is one social identity provider.
type Provider interface {
	ID() string
	Name() string
	CallbackURL() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (oauthadapter.Profile, error)
}

// Providers looks up configured providers.
type Providers interface {
	List() []Provider
	Get(id string) (Provider, error)
}

// Service orchestrates social sign-in.
type Service struct {
	providers Providers
	states    StateStore
	stateTTL  time.Duration
	baseURL   string
	log       *zap.Logger
	now       func() time.Time
}

// New creates a social sign-in service.
func New(providers Providers, states StateStore, stateTTL time.Duration, baseURL string, log *zap.Logger) *Service {
	return &Service{
		providers: providers,
		states:    states,
		stateTTL:  stateTTL,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// Providers lists configured providers in display order.
func (s *Service) Providers() []ProviderInfo {
	list := s.providers.List()
	out := make([]ProviderInfo, 0, len(list))
	for _, p := range list {
		out = append(out, ProviderInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			SignInURL:   s.baseURL + "/api/auth/signin/" + p.ID(),
			CallbackURL: p.CallbackURL(),
		})
	}
	return out
}

// BeginLogin records a pending login and returns the provider authorization URL.
func (s *Service) BeginLogin(ctx context.Context, providerID, callbackURL string) (string, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("provider", providerID))

	p, err := s.providers.Get(providerID)
	if err != nil {
		log.Warn("sign-in requested for unknown provider")
		return "", apperrors.NewNotFoundError("provider", "Unknown provider: "+providerID)
	}

	state := rand.Text()
	verifier := oauth2.GenerateVerifier()

	pending := domain.PendingLogin{
		Provider:     p.ID(),
		CodeVerifier: verifier,
		CallbackURL:  safeCallbackURL(callbackURL),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.states.Save(ctx, state, pending, s.stateTTL); err != nil {
		log.Error("failed to store oauth state", zap.Error(err))
		return "", apperrors.NewInternalError("failed to start sign-in", err)
	}

	log.Info("redirecting to provider")
	return p.AuthCodeURL(state, verifier), nil
}

// CompleteLogin finishes a provider callback and returns the signed-in identity.
func (s *Service) CompleteLogin(ctx context.Context, in CallbackRequest) (*LoginResult, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("provider", in.Provider))

	if in.Error != "" {
		log.Warn("provider returned an error", zap.String("error", in.Error))
		return nil, apperrors.NewUnauthorizedError("provider denied sign-in: " + in.Error)
	}
	if in.Code == "" || in.State == "" {
		log.Warn("callback missing code or state")
		return nil, apperrors.NewValidationError("", "missing code or state")
	}

	p, err := s.providers.Get(in.Provider)
	if err != nil {
		log.Warn("callback for unknown provider")
		return nil, apperrors.NewNotFoundError("provider", "Unknown provider: "+in.Provider)
	}

	pending, err := s.states.Take(ctx, in.State)
	if err != nil {
		log.Warn("oauth state rejected", zap.Error(err))
		return nil, ErrInvalidState
	}
	if pending.Provider != p.ID() {
		log.Warn("oauth state bound to another provider", zap.String("state_provider", pending.Provider))
		return nil, ErrInvalidState
	}

	token, err := p.Exchange(ctx, in.Code, pending.CodeVerifier)
	if err != nil {
		log.Warn("token exchange failed", zap.Error(err))
		return nil, apperrors.NewUnauthorizedError("token exchange failed")
	}

	profile, err := p.FetchProfile(ctx, token)
	if err != nil {
		log.Warn("profile request failed", zap.Error(err))
		return nil, apperrors.NewUnauthorizedError("profile request failed")
	}

	log.Info("social sign-in succeeded", zap.String("provider_user_id", profile.ID))
	return &LoginResult{
		Identity: session.Identity{
			UserID:   p.ID() + ":" + profile.ID,
			Name:     profile.Name,
			Email:    profile.Email,
			Provider: p.ID(),
		},
		CallbackURL: pending.CallbackURL,
	}, nil
}

// safeCallbackURL keeps only same-site absolute paths.
func safeCallbackURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return DefaultCallbackURL
	}
	return raw
}

type registryProviders struct {
	r *oauthadapter.Registry
}

// FromRegistry exposes an oauth registry as Providers.
func FromRegistry(r *oauthadapter.Registry) Providers {
	return registryProviders{r: r}
}

func (rp registryProviders) List() []Provider {
	list := rp.r.List()
	out := make([]Provider, 0, len(list))
	for _, p := range list {
		out = append(out, p)
	}
	return out
}

func (rp registryProviders) Get(id string) (Provider, error) {
	p, err := rp.r.Get(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}
