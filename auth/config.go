package auth

import (
	"fmt"
	"net/http"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	NewConfig,
	NewProvider,
	NewAuthenticator,
)

type Config struct {
	Mode Mode `envconfig:"TIDEPOOL_AUTH_MODE" default:"server"`

	ServerAddress string `envconfig:"TIDEPOOL_AUTH_CLIENT_ADDRESS" default:"http://localhost:9107"`
	ServerName    string `envconfig:"TIDEPOOL_AUTH_SERVER_NAME" default:"blip"`
	ServerSecret  string `envconfig:"TIDEPOOL_SERVER_SECRET"`
	TokenSecret   string `envconfig:"TIDEPOOL_SESSION_TOKEN_SECRET"`

	ServiceTokenEndpoint string `envconfig:"TIDEPOOL_AUTH_SERVICE_TOKEN_ENDPOINT"`
	ServiceClientId      string `envconfig:"TIDEPOOL_AUTH_SERVICE_CLIENT_ID"`
	ServiceClientSecret  string `envconfig:"TIDEPOOL_AUTH_SERVICE_CLIENT_SECRET"`

	DemoToken  string `envconfig:"TIDEPOOL_AUTH_DEMO_TOKEN" default:"demo-session-token"`
	DemoUserId string `envconfig:"TIDEPOOL_AUTH_DEMO_USER_ID" default:"demo"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewProvider selects the session provider once, based on the configured mode
func NewProvider(cfg *Config, logger *zap.SugaredLogger) (Provider, error) {
	logger.Infow("using auth provider", "mode", cfg.Mode)

	switch cfg.Mode {
	case ModeDemo:
		return NewDemoProvider(cfg.DemoToken, cfg.DemoUserId), nil
	case ModeServer:
		if cfg.ServerSecret == "" {
			return nil, fmt.Errorf("server secret is required in %s mode", cfg.Mode)
		}
		return NewServerProvider(cfg.ServerAddress, cfg.ServerName, cfg.ServerSecret, http.DefaultClient), nil
	case ModeServiceAccount:
		provider, err := NewServiceAccountProvider(cfg.ServiceTokenEndpoint, cfg.ServiceClientId, cfg.ServiceClientSecret)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// NewAuthenticator returns the authenticator for inbound requests. In demo mode only
// the demo session is accepted, otherwise tokens are verified and server tokens are cached.
func NewAuthenticator(cfg *Config, provider Provider) (Authenticator, error) {
	if demo, ok := provider.(*DemoProvider); ok {
		return NewSessionAuthenticator(demo.session), nil
	}
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("session token secret is required")
	}

	return NewCachingAuthenticator(
		DefaultCacheSize,
		DefaultCacheEntryExpiration,
		NewTokenAuthenticator(cfg.TokenSecret),
		IsServerAuth,
	)
}
