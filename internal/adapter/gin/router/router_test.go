package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"mailgate/internal/adapter/cache"
	"mailgate/internal/adapter/gin/handler"
	"mailgate/internal/adapter/gin/middleware"
	"mailgate/internal/adapter/gin/templates"
	"mailgate/internal/adapter/mail"
	oauthadapter "mailgate/internal/adapter/oauth"
	"mailgate/internal/adapter/repository/memory"
	sessionadapter "mailgate/internal/adapter/session"
	"mailgate/internal/usecase/auth"
	"mailgate/internal/usecase/notification"
	"mailgate/internal/usecase/user"
)

// recordingSender keeps every message instead of talking to a relay.
type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.sent...)
}

// RouterIntegrationTestSuite drives the full HTTP surface against real
// usecases, Redis (miniredis) and a fake GitHub-style identity provider.
type RouterIntegrationTestSuite struct {
	suite.Suite
	redis  *miniredis.Miniredis
	idp    *httptest.Server
	server *httptest.Server
	sender *recordingSender
	client *http.Client
}

func (suite *RouterIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	t := suite.T()
	log := zaptest.NewLogger(t)

	suite.redis = miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: suite.redis.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	suite.idp = httptest.NewServer(fakeIdentityProvider())
	t.Cleanup(suite.idp.Close)

	var engine http.Handler
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		engine.ServeHTTP(w, r)
	}))
	t.Cleanup(suite.server.Close)

	registry := oauthadapter.NewRegistry(suite.server.URL, []oauthadapter.Definition{{
		ID:           oauthadapter.GitHub,
		Name:         "GitHub",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   suite.idp.URL + "/authorize",
			TokenURL:  suite.idp.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes:      []string{"read:user", "user:email"},
		UserInfoURL: suite.idp.URL + "/user",
		EmailsURL:   suite.idp.URL + "/user/emails",
	}}, oauthadapter.WithHTTPClient(suite.idp.Client()))

	tokens, err := sessionadapter.NewTokenManager(strings.Repeat("s", 32), "mailgate", time.Hour)
	suite.Require().NoError(err)
	sessions := middleware.NewSessions(tokens, false, log)
	csrf := middleware.NewCSRF(false)

	suite.sender = &recordingSender{}
	users := user.New(memory.NewUserRepo(log), log, user.WithHashCost(bcrypt.MinCost))
	social := auth.New(auth.FromRegistry(registry), cache.NewRedisStateStore(rdb, log), 10*time.Minute, suite.server.URL, log)
	mailer := notification.New(suite.sender, log)

	tmpl, err := templates.Load()
	suite.Require().NoError(err)

	engine = SetupRouter(Deps{
		Auth:     handler.NewAuthHandler(users, social, sessions, csrf, log),
		Email:    handler.NewEmailHandler(mailer, log),
		Pages:    handler.NewPageHandler(social),
		Sessions: sessions,
		CSRF:     csrf,
		RateLimiter: middleware.NewRateLimiter(rdb, middleware.RateLimiterConfig{
			RequestsPerSecond: 100,
			WindowSeconds:     60,
			Enabled:           true,
		}, log),
		Templates:   tmpl,
		ServiceName: "mailgate-test",
		Log:         log,
	})
}

// SetupTest gives every test a fresh browser: new cookie jar, no session.
func (suite *RouterIntegrationTestSuite) SetupTest() {
	jar, err := cookiejar.New(nil)
	suite.Require().NoError(err)
	suite.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// fakeIdentityProvider approves every consent request and serves a fixed GitHub profile
// whose email is only available from the emails endpoint.
func fakeIdentityProvider() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
			http.Error(w, "pkce required", http.StatusBadRequest)
			return
		}
		back, _ := url.Parse(q.Get("redirect_uri"))
		v := back.Query()
		v.Set("code", "auth-code")
		v.Set("state", q.Get("state"))
		back.RawQuery = v.Encode()
		http.Redirect(w, r, back.String(), http.StatusFound)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "auth-code" || r.PostForm.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"gh-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":42,"login":"octocat","name":"","email":null}`)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`)
	})
	return mux
}

func (suite *RouterIntegrationTestSuite) get(path string) (*http.Response, string) {
	resp, err := suite.client.Get(suite.server.URL + path)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp, string(body)
}

func (suite *RouterIntegrationTestSuite) postJSON(path string, payload any, csrfToken string) (*http.Response, map[string]any) {
	raw, err := json.Marshal(payload)
	suite.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, suite.server.URL+path, bytes.NewReader(raw))
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set(middleware.CSRFHeader, csrfToken)
	}

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (suite *RouterIntegrationTestSuite) csrfToken() string {
	resp, body := suite.get("/api/auth/csrf")
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	var out map[string]string
	suite.Require().NoError(json.Unmarshal([]byte(body), &out))
	suite.Require().NotEmpty(out["csrfToken"])
	return out["csrfToken"]
}

func (suite *RouterIntegrationTestSuite) session() map[string]any {
	_, body := suite.get("/api/auth/session")
	out := map[string]any{}
	suite.Require().NoError(json.Unmarshal([]byte(body), &out))
	return out
}

func (suite *RouterIntegrationTestSuite) TestHealth() {
	resp, body := suite.get("/health")

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`{"status":"healthy","service":"mailgate-test"}`, body)
}

func (suite *RouterIntegrationTestSuite) TestCredentialsSignUpSendAndSignOut() {
	resp, body := suite.postJSON("/api/auth/signup", map[string]string{
		"name": "Jane", "email": "jane@example.com", "password": "hunter2",
	}, "")
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(true, body["success"])

	resp, body = suite.postJSON("/api/auth/signup", map[string]string{
		"name": "Jane", "email": "JANE@example.com", "password": "other",
	}, "")
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Equal("User already exists with this email", body["error"])

	token := suite.csrfToken()
	resp, body = suite.postJSON("/api/auth/callback/credentials", map[string]string{
		"email": "jane@example.com", "password": "hunter2", "callbackUrl": "/dashboard",
	}, token)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("/dashboard", body["url"])

	sess := suite.session()
	suite.Require().Contains(sess, "user")
	suite.Equal("jane@example.com", sess["user"].(map[string]any)["email"])

	resp, page := suite.get("/dashboard")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(page, "jane@example.com")

	resp, body = suite.postJSON("/api/send-email", map[string]string{
		"emails":  "a@example.com, b@example.com",
		"subject": "Hello",
		"message": "Body text",
	}, "")
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(true, body["success"])
	sent := suite.sender.messages()
	suite.Require().Len(sent, 1)
	suite.Equal([]string{"a@example.com", "b@example.com"}, sent[0].To)
	suite.Equal("Hello", sent[0].Subject)

	resp, body = suite.postJSON("/api/send-email", map[string]string{
		"emails": "a@example.com, nope", "subject": "Hello", "message": "Body",
	}, "")
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Equal("Invalid email format: nope", body["error"])

	resp, body = suite.postJSON("/api/auth/signout", nil, token)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("/", body["url"])
	suite.Empty(suite.session())

	resp, _ = suite.postJSON("/api/send-email", map[string]string{
		"emails": "a@example.com", "subject": "Hello", "message": "Body",
	}, "")
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *RouterIntegrationTestSuite) TestCredentialsRequireCSRF() {
	resp, body := suite.postJSON("/api/auth/callback/credentials", map[string]string{
		"email": "nobody@example.com", "password": "x",
	}, "")

	suite.Equal(http.StatusForbidden, resp.StatusCode)
	suite.Equal("MissingCSRF", body["error"])
}

func (suite *RouterIntegrationTestSuite) TestWrongPassword() {
	resp, _ := suite.postJSON("/api/auth/signup", map[string]string{
		"name": "Max", "email": "max@example.com", "password": "right",
	}, "")
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, body := suite.postJSON("/api/auth/callback/credentials", map[string]string{
		"email": "max@example.com", "password": "wrong",
	}, suite.csrfToken())

	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	suite.Equal("CredentialsSignin", body["error"])
	suite.Empty(suite.session())
}

func (suite *RouterIntegrationTestSuite) TestSignInPageListsProviders() {
	resp, page := suite.get("/")

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(page, suite.server.URL+"/api/auth/signin/github")
	suite.Contains(page, "GitHub")
	suite.NotEmpty(resp.Header.Get("X-Request-ID"))
}

func (suite *RouterIntegrationTestSuite) TestGitHubLogin() {
	resp, page := suite.get("/api/auth/signin/github?callbackUrl=/dashboard")

	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("/dashboard", resp.Request.URL.Path)
	suite.Contains(page, "octo@example.com")

	who := suite.session()["user"].(map[string]any)
	suite.Equal("github:42", who["id"])
	suite.Equal("octocat", who["name"])
	for _, key := range suite.redis.Keys() {
		suite.False(strings.HasPrefix(key, "oauth:state:"), "state %s was not consumed", key)
	}
}

func (suite *RouterIntegrationTestSuite) TestOAuthCallbackRejectsUnknownState() {
	suite.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, _ := suite.get("/api/auth/callback/github?code=auth-code&state=forged")

	suite.Equal(http.StatusFound, resp.StatusCode)
	suite.Equal("/?error=OAuthCallback", resp.Header.Get("Location"))
	suite.Empty(suite.session())
}

func (suite *RouterIntegrationTestSuite) TestUnknownProvider() {
	resp, body := suite.get("/api/auth/signin/myspace")

	suite.Equal(http.StatusNotFound, resp.StatusCode)
	suite.JSONEq(`{"error":"Unknown provider: myspace"}`, body)
}

func TestRouterIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(RouterIntegrationTestSuite))
}
