package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	HttpPort        uint16 `envconfig:"TIDEPOOL_HTTP_SERVER_PORT" default:"8080" required:"true"`
	DefaultTimezone string `envconfig:"TIDEPOOL_DEFAULT_TIMEZONE" default:"Local"`
	// Glycemic range preset used for users that are not attached to a clinic
	DefaultGlycemicRangePreset string `envconfig:"TIDEPOOL_DEFAULT_GLYCEMIC_RANGE_PRESET" default:"ADA_STANDARD"`
	DefaultBgUnits             string `envconfig:"TIDEPOOL_DEFAULT_BG_UNITS" default:"mg/dL"`
}

func New() *Config {
	return &Config{}
}

func (c *Config) LoadFromEnv() error {
	return envconfig.Process("", c)
}

func NewFromEnv() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
