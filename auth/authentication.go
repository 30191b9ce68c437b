package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var (
	ErrUnauthenticated            = fmt.Errorf("session token is invalid")
	AuthContextKey                = AuthKey("auth")
	TidepoolSessionTokenHeaderKey = "x-tidepool-session-token"
	DefaultCacheSize              = 10000           // Cache up to 10000 tokens
	DefaultCacheEntryExpiration   = 5 * time.Minute // Cache tokens for 5 minutes
)

type AuthKey string

type Auth struct {
	SubjectId    string `json:"subjectId" structs:"subjectId"`
	ServerAccess bool   `json:"serverAccess" structs:"serverAccess"`
}

func IsServerAuth(a *Auth) bool {
	return a != nil && a.ServerAccess
}

type Authenticator interface {
	ValidateAndSetAuthData(token string, ec echo.Context) (bool, error)
}

type AuthMiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewAuthMiddleware(authenticator Authenticator, opts AuthMiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Allow skipping authentication for certain routes (e.g. readiness probe)
			if opts.Skipper != nil && opts.Skipper(c) {
				return next(c)
			}

			token := c.Request().Header.Get(TidepoolSessionTokenHeaderKey)
			if token == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "session token is missing")
			}

			valid, err := authenticator.ValidateAndSetAuthData(token, c)
			if err != nil {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "session token is invalid",
					Internal: err,
				}
			} else if valid {
				return next(c)
			}
			return echo.ErrUnauthorized
		}
	}
}

// TokenAuthenticator validates session tokens signed with the shared token secret
type TokenAuthenticator struct {
	secret []byte
}

var _ Authenticator = &TokenAuthenticator{}

func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret)}
}

func (t *TokenAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	claims := TokenClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.UserId == "" {
		return false, ErrUnauthenticated
	}

	SetAuthData(ec, &Auth{
		SubjectId:    claims.UserId,
		ServerAccess: claims.IsServer(),
	})
	return true, nil
}

// SessionAuthenticator accepts only the token of a single known session
type SessionAuthenticator struct {
	session Session
}

var _ Authenticator = &SessionAuthenticator{}

func NewSessionAuthenticator(session Session) *SessionAuthenticator {
	return &SessionAuthenticator{session: session}
}

func (s *SessionAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	if s.session.IsZero() || token != s.session.Token() {
		return false, ErrUnauthenticated
	}
	SetAuthData(ec, &Auth{
		SubjectId:    s.session.UserId(),
		ServerAccess: s.session.ServerAccess(),
	})
	return true, nil
}

func GetAuthData(ctx context.Context) *Auth {
	if auth, ok := ctx.Value(AuthContextKey).(*Auth); ok {
		return auth
	}

	return nil
}

func SetAuthData(ec echo.Context, auth *Auth) {
	ctx := context.WithValue(ec.Request().Context(), AuthContextKey, auth)
	ec.SetRequest(ec.Request().WithContext(ctx))
}

type CacheEntry struct {
	token  string
	auth   *Auth
	expiry time.Time
}

func (c CacheEntry) IsExpired() bool {
	return time.Now().After(c.expiry)
}

// CachingAuthenticator remembers successful validations for which shouldCache returns true
type CachingAuthenticator struct {
	delegate    Authenticator
	expiration  time.Duration
	lru         *simplelru.LRU
	mu          *sync.Mutex
	shouldCache func(*Auth) bool
}

var _ Authenticator = &CachingAuthenticator{}

func NewCachingAuthenticator(size int, expiration time.Duration, delegate Authenticator, shouldCache func(*Auth) bool) (*CachingAuthenticator, error) {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return nil, err
	}

	return &CachingAuthenticator{
		delegate:    delegate,
		expiration:  expiration,
		lru:         lru,
		mu:          &sync.Mutex{},
		shouldCache: shouldCache,
	}, nil
}

func (c *CachingAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	if entry := c.getCachedEntry(token); entry != nil {
		SetAuthData(ec, entry.auth)
		return true, nil
	}

	res, err := c.delegate.ValidateAndSetAuthData(token, ec)
	if err != nil || !res {
		return res, err
	}

	if auth := GetAuthData(ec.Request().Context()); c.shouldCache(auth) {
		c.setCacheEntry(CacheEntry{
			token:  token,
			auth:   auth,
			expiry: time.Now().Add(c.expiration),
		})
	}

	return res, nil
}

func (c *CachingAuthenticator) getCachedEntry(token string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(token); ok {
		entry := e.(CacheEntry)
		if entry.IsExpired() {
			c.lru.Remove(token)
			return nil
		}
		return &entry
	}

	return nil
}

func (c *CachingAuthenticator) setCacheEntry(entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.lru.Add(entry.token, entry)
}
