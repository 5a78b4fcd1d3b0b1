package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	indexer "github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var errIndexerConfigNotFound = errors.New("indexer config file not found")

type Config struct {
	Server  ServerConfig    `json:"server"`
	Indexer IndexerConfig   `json:"indexer"`
	Poller  PollerConfig    `json:"poller"`
	Probe   ProbeConfig     `json:"probe"`
	Slack   SlackConfig     `json:"slack"`
	Jobs    types.JobConfig `json:"jobs"`
}

type ServerConfig struct {
	Port         string `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// IndexerConfig points at the chains/contracts file. An empty path selects
// the built-in configuration.
type IndexerConfig struct {
	Path string `json:"path"`
}

type PollerConfig struct {
	Interval string `json:"interval"`
}

type ProbeConfig struct {
	Attempts    uint   `json:"attempts"`
	RetryDelay  string `json:"retry_delay"`
	Timeout     string `json:"timeout"`
	CacheTTL    string `json:"cache_ttl"`
	Concurrency int    `json:"concurrency"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url" mask:"url"`
}

// envConfig is used when no config file exists.
type envConfig struct {
	Port              string `envconfig:"PORT" default:"8080"`
	IndexerConfigPath string `envconfig:"INDEXER_CONFIG"`
	PollerInterval    string `envconfig:"POLLER_INTERVAL" default:"30s"`
	ProbeAttempts     uint   `envconfig:"PROBE_ATTEMPTS" default:"3"`
	ProbeRetryDelay   string `envconfig:"PROBE_RETRY_DELAY" default:"1s"`
	ProbeTimeout      string `envconfig:"PROBE_TIMEOUT" default:"10s"`
	SlackWebhookURL   string `envconfig:"SLACK_WEBHOOK_URL"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if err := godotenv.Load(); err != nil {
			if err := godotenv.Load(".env.local"); err != nil {
				fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
			}
		}
		return FromEnv()
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.applyDefaults()

	return config, nil
}

// FromEnv builds the service configuration from environment variables.
func FromEnv() (*Config, error) {
	var env envConfig
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	config := DefaultConfig()
	config.Server.Port = env.Port
	config.Indexer.Path = env.IndexerConfigPath
	config.Poller.Interval = env.PollerInterval
	config.Probe.Attempts = env.ProbeAttempts
	config.Probe.RetryDelay = env.ProbeRetryDelay
	config.Probe.Timeout = env.ProbeTimeout
	config.Slack.WebhookURL = env.SlackWebhookURL

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  "10s",
			WriteTimeout: "30s",
		},
		Poller: PollerConfig{
			Interval: "30s",
		},
		Probe: ProbeConfig{
			Attempts:    3,
			RetryDelay:  "1s",
			Timeout:     "10s",
			CacheTTL:    "5m",
			Concurrency: 5,
		},
		Jobs: types.JobConfig{
			MaxConcurrent: 2,
			Predefined: []types.Job{
				{
					Name:            "probe-chains",
					Schedule:        "0 */5 * * * *",
					TaskName:        "probe-chains",
					Enabled:         true,
					Description:     "Probe every configured chain endpoint",
					NotifyOnFailure: true,
				},
				{
					Name:            "check-contracts",
					Schedule:        "0 0 * * * *",
					TaskName:        "check-contracts",
					Enabled:         true,
					Description:     "Verify contract code and start blocks",
					NotifyOnFailure: false,
				},
			},
		},
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Server.Port == "" {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Poller.Interval == "" {
		c.Poller.Interval = defaults.Poller.Interval
	}
	if c.Probe.Attempts == 0 {
		c.Probe.Attempts = defaults.Probe.Attempts
	}
	if c.Probe.RetryDelay == "" {
		c.Probe.RetryDelay = defaults.Probe.RetryDelay
	}
	if c.Probe.Timeout == "" {
		c.Probe.Timeout = defaults.Probe.Timeout
	}
	if c.Probe.CacheTTL == "" {
		c.Probe.CacheTTL = defaults.Probe.CacheTTL
	}
	if c.Probe.Concurrency <= 0 {
		c.Probe.Concurrency = defaults.Probe.Concurrency
	}
	if c.Jobs.MaxConcurrent <= 0 {
		c.Jobs.MaxConcurrent = defaults.Jobs.MaxConcurrent
	}
}

// Redacted returns a copy that is safe to log. The Slack webhook path is a
// credential.
func (c *Config) Redacted() (*Config, error) {
	masked, err := indexer.Mask(*c)
	if err != nil {
		return nil, err
	}
	return &masked, nil
}

// Duration parses value, falling back when it is empty.
func Duration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}

// FindIndexerConfig looks for config/indexer.yaml or indexer.yaml in the
// working directory and up to two of its parents.
func FindIndexerConfig() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for i := 0; i < 3; i++ {
		for _, candidate := range []string{
			filepath.Join(wd, "config", "indexer.yaml"),
			filepath.Join(wd, "indexer.yaml"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}

	return "", errIndexerConfigNotFound
}

// IndexerConfigPath resolves the indexer file to load: the configured path
// if set, otherwise a discovered file, otherwise "" for the built-in one.
func (c *Config) IndexerConfigPath() string {
	if c.Indexer.Path != "" {
		return c.Indexer.Path
	}
	path, err := FindIndexerConfig()
	if err != nil {
		return ""
	}
	return path
}
