package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"

	"mailgate/internal/config"
)

// Provider identifiers, in display order.
const (
	Google   = "google"
	Facebook = "facebook"
	LinkedIn = "linkedin"
	GitHub   = "github"
)

const maxProfileBytes = 1 << 20

// Definition describes one social login provider.
type Definition struct {
	ID           string
	Name         string
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	Scopes       []string
	UserInfoURL  string
	// EmailsURL is consulted when the profile carries no email. GitHub only.
	EmailsURL string
}

// Definitions returns the providers that have both a client id and secret configured.
func Definitions(cfg config.OAuthConfig) []Definition {
	all := []Definition{
		{
			ID:           Google,
			Name:         "Google",
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
			UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		},
		{
			ID:           Facebook,
			Name:         "Facebook",
			ClientID:     cfg.FacebookClientID,
			ClientSecret: cfg.FacebookClientSecret,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"public_profile"},
			UserInfoURL:  "https://graph.facebook.com/me?fields=id,name",
		},
		{
			ID:           LinkedIn,
			Name:         "LinkedIn",
			ClientID:     cfg.LinkedInClientID,
			ClientSecret: cfg.LinkedInClientSecret,
			Endpoint:     linkedin.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			UserInfoURL:  "https://api.linkedin.com/v2/userinfo",
		},
		{
			ID:           GitHub,
			Name:         "GitHub",
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
			UserInfoURL:  "https://api.github.com/user",
			EmailsURL:    "https://api.github.com/user/emails",
		},
	}

	enabled := make([]Definition, 0, len(all))
	for _, d := range all {
		if d.ClientID != "" && d.ClientSecret != "" {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// Profile is the subset of a provider's user info the app keeps.
type Profile struct {
	ID    string
	Name  string
	Email string
}

// Provider runs the authorization code flow against one identity provider.
type Provider struct {
	def        Definition
	config     *oauth2.Config
	httpClient *http.Client
}

// ID returns the provider identifier used in routes.
func (p *Provider) ID() string { return p.def.ID }

// Name returns the display name.
func (p *Provider) Name() string { return p.def.Name }

// CallbackURL returns the redirect URI registered with the provider.
func (p *Provider) CallbackURL() string { return p.config.RedirectURL }

// AuthCodeURL returns the provider consent URL carrying state and the PKCE challenge.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.def.ID, err)
	}
	return token, nil
}

// FetchProfile loads the signed-in user's profile with token.
func (p *Provider) FetchProfile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	client := p.config.Client(p.clientContext(ctx), token)

	body, err := getJSON(ctx, client, p.def.UserInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("%s profile: %w", p.def.ID, err)
	}

	var profile Profile
	switch p.def.ID {
	case GitHub:
		profile, err = decodeGitHubProfile(body)
	case Facebook:
		profile, err = decodeFacebookProfile(body)
	default:
		profile, err = decodeOpenIDProfile(body)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%s profile: %w", p.def.ID, err)
	}
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("%s profile: missing user id", p.def.ID)
	}

	if profile.Email == "" && p.def.EmailsURL != "" {
		email, err := p.primaryEmail(ctx, client)
		if err != nil {
			return Profile{}, fmt.Errorf("%s emails: %w", p.def.ID, err)
		}
		profile.Email = email
	}
	return profile, nil
}

func (p *Provider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	body, err := getJSON(ctx, client, p.def.EmailsURL)
	if err != nil {
		return "", err
	}
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
}

func decodeOpenIDProfile(body []byte) (Profile, error) {
	var payload struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Profile{}, err
	}
	return Profile{ID: payload.Sub, Name: payload.Name, Email: payload.Email}, nil
}

func decodeFacebookProfile(body []byte) (Profile, error) {
	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Profile{}, err
	}
	return Profile{ID: payload.ID, Name: payload.Name}, nil
}

func decodeGitHubProfile(body []byte) (Profile, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Profile{}, err
	}
	var id string
	if payload.ID != 0 {
		id = strconv.FormatInt(payload.ID, 10)
	}
	name := payload.Name
	if strings.TrimSpace(name) == "" {
		name = payload.Login
	}
	return Profile{ID: id, Name: name, Email: payload.Email}, nil
}

// ErrUnknownProvider is returned by Registry.Get for unconfigured providers.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Registry holds the enabled providers in display order.
type Registry struct {
	order     []string
	providers map[string]*Provider
}

// RegistryOption customizes a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the client used for token exchange and profile requests.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(o *registryOptions) {
		o.httpClient = c
	}
}

// NewRegistry builds providers whose callbacks live under baseURL.
func NewRegistry(baseURL string, defs []Definition, opts ...RegistryOption) *Registry {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")
	r := &Registry{providers: make(map[string]*Provider, len(defs))}
	for _, d := range defs {
		r.order = append(r.order, d.ID)
		r.providers[d.ID] = &Provider{
			def: d,
			config: &oauth2.Config{
				ClientID:     d.ClientID,
				ClientSecret: d.ClientSecret,
				Endpoint:     d.Endpoint,
				Scopes:       d.Scopes,
				RedirectURL:  baseURL + "/api/auth/callback/" + d.ID,
			},
			httpClient: o.httpClient,
		}
	}
	return r
}

// Get returns the provider with the given id.
func (r *Registry) Get(id string) (*Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// List returns the providers in display order.
func (r *Registry) List() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}
