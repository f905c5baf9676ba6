package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HUDDLE_ADDR is the base URL of a running server, the suites are skipped without it
	HuddleAddr string `envconfig:"HUDDLE_ADDR"`
	// E2E_DEBUG_JSON dumps every websocket frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
