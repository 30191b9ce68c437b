package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ServiceAccountProvider obtains sessions with the oauth2 client credentials flow
type ServiceAccountProvider struct {
	tokenSource oauth2.TokenSource

	mu      sync.Mutex
	token   *oauth2.Token
	session Session
}

var _ Provider = &ServiceAccountProvider{}

func NewServiceAccountProvider(tokenEndpoint, clientId, clientSecret string) (*ServiceAccountProvider, error) {
	if tokenEndpoint == "" {
		return nil, fmt.Errorf("token endpoint is missing")
	}

	config := clientcredentials.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		TokenURL:     tokenEndpoint,
		Scopes:       []string{"openid"},
	}

	return &ServiceAccountProvider{
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

func (s *ServiceAccountProvider) Mode() Mode {
	return ModeServiceAccount
}

func (s *ServiceAccountProvider) Session(_ context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.tokenSource.Token()
	if err != nil {
		return Session{}, fmt.Errorf("unable to obtain tokens: %w", err)
	}
	if s.token != nil && s.token.AccessToken == tokens.AccessToken {
		return s.session, nil
	}

	idToken, ok := tokens.Extra("id_token").(string)
	if !ok {
		return Session{}, fmt.Errorf("id token is missing")
	}

	// We just retrieved the token using the client credentials, so it's ok to not verify the token
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Session{}, fmt.Errorf("unable to parse id token: %w", err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("id token subject is missing")
	}

	s.token = tokens
	s.session = NewSession(tokens.AccessToken, claims.Subject, true, tokens.Expiry)
	return s.session, nil
}
