// Package config collects the environment configuration shared by the
// crowdcore daemons. Storage and blob driver selection stays with the
// driver packages themselves; everything run-scoped lives here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, parsed from CROWDCORE_* variables.
type Config struct {
	RunID string `env:"CROWDCORE_RUN_ID"`
	Debug bool   `env:"CROWDCORE_DEBUG" envDefault:"false"`

	// Run shape.
	PracticeRepeats   int `env:"CROWDCORE_PRACTICE_REPEATS" envDefault:"0"`
	ExperimentRepeats int `env:"CROWDCORE_EXPERIMENT_REPEATS" envDefault:"1"`
	NetworkMaxSize    int `env:"CROWDCORE_NETWORK_MAX_SIZE" envDefault:"1"`
	InitialRecruits   int `env:"CROWDCORE_INITIAL_RECRUITS" envDefault:"1"`

	// Labor market.
	MTurkJobID     string  `env:"CROWDCORE_MTURK_JOB_ID"`
	MTurkRegion    string  `env:"CROWDCORE_MTURK_REGION" envDefault:"us-east-1"`
	MTurkSandbox   bool    `env:"CROWDCORE_MTURK_SANDBOX" envDefault:"true"`
	MTurkAccessKey string  `env:"CROWDCORE_MTURK_ACCESS_KEY"`
	MTurkSecretKey string  `env:"CROWDCORE_MTURK_SECRET_KEY"`
	BaseBonus      float64 `env:"CROWDCORE_BASE_BONUS" envDefault:"0"`

	// Endpoints.
	HostBaseURL    string `env:"CROWDCORE_HOST_BASE_URL"`
	HostingBaseURL string `env:"CROWDCORE_HOSTING_BASE_URL"`

	// Reconciliation.
	SweepInterval   time.Duration `env:"CROWDCORE_SWEEP_INTERVAL" envDefault:"30s"`
	SessionDuration time.Duration `env:"CROWDCORE_SESSION_DURATION" envDefault:"1h"`
	GracePeriod     time.Duration `env:"CROWDCORE_GRACE_PERIOD" envDefault:"2m"`
	BadDataWindow   int           `env:"CROWDCORE_BAD_DATA_WINDOW" envDefault:"0"`

	// Completion polling.
	PollInterval time.Duration `env:"CROWDCORE_POLL_INTERVAL" envDefault:"30s"`
}

// Load parses the environment into a Config and validates run shape.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PracticeRepeats < 0 || c.ExperimentRepeats < 0 {
		return fmt.Errorf("config: repeat counts must be non-negative")
	}
	if c.PracticeRepeats+c.ExperimentRepeats == 0 {
		return fmt.Errorf("config: at least one network repeat is required")
	}
	if c.NetworkMaxSize <= 0 {
		return fmt.Errorf("config: network max size must be positive")
	}
	if c.InitialRecruits < 0 {
		return fmt.Errorf("config: initial recruits must be non-negative")
	}
	if c.BadDataWindow < 0 {
		return fmt.Errorf("config: bad-data window must be non-negative")
	}
	return nil
}
