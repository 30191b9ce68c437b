package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	serverNameHeaderKey   = "X-Tidepool-Server-Name"
	serverSecretHeaderKey = "X-Tidepool-Server-Secret"

	// sessions are refreshed this long before they expire
	refreshWindow = time.Minute
)

var ErrServerLoginFailed = fmt.Errorf("server login failed")

// TokenClaims are the claims of tidepool session tokens
type TokenClaims struct {
	UserId string `json:"usr"`
	Server string `json:"svr"`
	jwt.RegisteredClaims
}

func (t TokenClaims) IsServer() bool {
	return t.Server == "yes"
}

// ServerProvider logs in with the server secret and reuses the session until it is about to expire
type ServerProvider struct {
	address    string
	name       string
	secret     string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	session Session
}

var _ Provider = &ServerProvider{}

func NewServerProvider(address, name, secret string, httpClient *http.Client) *ServerProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServerProvider{
		address:    strings.TrimSuffix(address, "/"),
		name:       name,
		secret:     secret,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (s *ServerProvider) Mode() Mode {
	return ModeServer
}

func (s *ServerProvider) Session(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.IsValidAt(s.now().Add(refreshWindow)) {
		return s.session, nil
	}

	session, err := s.login(ctx)
	if err != nil {
		return Session{}, err
	}
	s.session = session
	return session, nil
}

func (s *ServerProvider) login(ctx context.Context) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.address+"/auth/serverlogin", nil)
	if err != nil {
		return Session{}, err
	}
	req.Header.Set(serverNameHeaderKey, s.name)
	req.Header.Set(serverSecretHeaderKey, s.secret)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrServerLoginFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("%w: unexpected status code %d", ErrServerLoginFailed, res.StatusCode)
	}

	token := res.Header.Get(TidepoolSessionTokenHeaderKey)
	if token == "" {
		return Session{}, fmt.Errorf("%w: session token is missing", ErrServerLoginFailed)
	}

	// The token was just issued to us so it's ok to not verify the signature
	claims := TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("%w: unable to parse session token: %w", ErrServerLoginFailed, err)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return NewSession(token, claims.UserId, claims.IsServer(), expiresAt), nil
}
