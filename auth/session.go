package auth

import (
	"context"
	"time"
)

// Session is an authenticated identity used for calls to other services. It is
// immutable, a new session is issued when the token is refreshed.
type Session struct {
	token        string
	userId       string
	serverAccess bool
	expiresAt    time.Time
}

func NewSession(token, userId string, serverAccess bool, expiresAt time.Time) Session {
	return Session{
		token:        token,
		userId:       userId,
		serverAccess: serverAccess,
		expiresAt:    expiresAt,
	}
}

func (s Session) Token() string {
	return s.token
}

func (s Session) UserId() string {
	return s.userId
}

func (s Session) ServerAccess() bool {
	return s.serverAccess
}

func (s Session) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s Session) IsZero() bool {
	return s.token == ""
}

// IsValidAt reports whether the session can still be used at t. Sessions without expiry never expire.
func (s Session) IsValidAt(t time.Time) bool {
	if s.IsZero() {
		return false
	}
	return s.expiresAt.IsZero() || t.Before(s.expiresAt)
}

type Mode string

const (
	ModeDemo           Mode = "demo"
	ModeServer         Mode = "server"
	ModeServiceAccount Mode = "serviceAccount"
)

// Provider supplies the session used to authenticate outbound requests
type Provider interface {
	Session(ctx context.Context) (Session, error)
	Mode() Mode
}

// DemoProvider hands out a fixed session without talking to any service
type DemoProvider struct {
	session Session
}

var _ Provider = &DemoProvider{}

func NewDemoProvider(token, userId string) *DemoProvider {
	return &DemoProvider{
		session: NewSession(token, userId, false, time.Time{}),
	}
}

func (d *DemoProvider) Session(_ context.Context) (Session, error) {
	return d.session, nil
}

func (d *DemoProvider) Mode() Mode {
	return ModeDemo
}
