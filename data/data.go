package data

import (
	"context"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/errors"
	"github.com/tidepool-org/blip/glucose"
)

//go:generate mockgen --build_flags=--mod=mod -source=./data.go -destination=./test/mock_client.go -package test MockClient

var Module = fx.Provide(
	NewConfig,
	NewClient,
)

var ErrUnexpectedResponse = fmt.Errorf("%w: unexpected response from data service", errors.BadGateway)

// Client fetches the glucose readings of a user in [start, end)
type Client interface {
	ListReadings(ctx context.Context, userId string, start, end time.Time) ([]glucose.Reading, error)
}

type Config struct {
	Address         string        `envconfig:"TIDEPOOL_DATA_CLIENT_ADDRESS" default:"http://localhost:9220"`
	CacheSize       int           `envconfig:"TIDEPOOL_DATA_CACHE_SIZE" default:"1000"`
	CacheExpiration time.Duration `envconfig:"TIDEPOOL_DATA_CACHE_EXPIRATION" default:"1m"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewClient(cfg *Config, provider auth.Provider) (Client, error) {
	client := NewHttpClientBuilder().
		WithAddress(cfg.Address).
		WithAuthProvider(provider).
		Build()

	if cfg.CacheSize <= 0 {
		return client, nil
	}
	return NewCachingClient(client, cfg.CacheSize, cfg.CacheExpiration)
}
