package configloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// PerformanceConfig holds fan-out and RPC limits.
type PerformanceConfig struct {
	MaxConcurrentRoutines    int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds    int `yaml:"rpc_call_timeout_seconds"`
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds"`
}

// IndexerConfig holds settings for the Esplora and Blockfrost REST indexers.
type IndexerConfig struct {
	RateLimit           float64 `yaml:"rateLimit"` // requests per second
	BurstLimit          int     `yaml:"burstLimit"`
	CacheTTLSeconds     int     `yaml:"cacheTTLSeconds"`
	BlockfrostProjectID string  `yaml:"blockfrostProjectId"`
}

// RefreshConfig drives the periodic portfolio refresh of watched wallets.
type RefreshConfig struct {
	IntervalSeconds int    `yaml:"intervalSeconds"`
	WalletsFile     string `yaml:"walletsFile"`
}

// SmartAccountConfig enables counterfactual smart-account addresses on a chain.
type SmartAccountConfig struct {
	FactoryAddress string `yaml:"factoryAddress"`
	Salt           uint64 `yaml:"salt"`
}

// ChainOverride adjusts one built-in chain.
type ChainOverride struct {
	ID           string              `yaml:"id"`
	RPC          string              `yaml:"rpc"`
	Disabled     bool                `yaml:"disabled"`
	TokensFile   string              `yaml:"tokensFile"`
	SmartAccount *SmartAccountConfig `yaml:"smartAccount"`
}

// FingerprintConfig selects the fingerprint store.
type FingerprintConfig struct {
	Driver     string `yaml:"driver"` // memory or mongo
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Logging      LoggingConfig     `yaml:"logging"`
	Performance  PerformanceConfig `yaml:"performance"`
	Indexer      IndexerConfig     `yaml:"indexer"`
	Refresh      RefreshConfig     `yaml:"refresh"`
	TokensDir    string            `yaml:"tokensDir"`
	Chains       []ChainOverride   `yaml:"chains"`
	Fingerprints FingerprintConfig `yaml:"fingerprints"`
}

// Load reads the YAML configuration at path, applies environment overrides and defaults.
// A missing file is not an error: the defaults describe a working setup.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	case os.IsNotExist(err):
		logrus.Warnf("Config file %s not found, using defaults", path)
	default:
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	logrus.Infof("Configuration loaded: %d chain overrides, fingerprint store %s", len(cfg.Chains), cfg.Fingerprints.Driver)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if !strings.HasPrefix(cfg.Server.Port, ":") && !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 60
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 120
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}

	if cfg.Indexer.RateLimit <= 0 {
		cfg.Indexer.RateLimit = 5
	}
	if cfg.Indexer.BurstLimit <= 0 {
		cfg.Indexer.BurstLimit = 5
	}
	if cfg.Indexer.CacheTTLSeconds <= 0 {
		cfg.Indexer.CacheTTLSeconds = 60
	}

	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 30
	}

	if cfg.Fingerprints.Driver == "" {
		cfg.Fingerprints.Driver = "memory"
	}
	if cfg.Fingerprints.Database == "" {
		cfg.Fingerprints.Database = "wallet"
	}
	if cfg.Fingerprints.Collection == "" {
		cfg.Fingerprints.Collection = "fingerprints"
	}
}

// applyEnv lets secrets and endpoints come from the environment:
// BLOCKFROST_PROJECT_ID, MONGO_URI and <CHAIN_ID>_RPC (e.g. ETHEREUM_RPC).
func applyEnv(cfg *Config) {
	if v := os.Getenv("BLOCKFROST_PROJECT_ID"); v != "" {
		cfg.Indexer.BlockfrostProjectID = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Fingerprints.URI = v
	}

	for _, id := range []string{"ethereum", "bnb", "polygon", "bitcoin", "solana", "cardano"} {
		rpc := os.Getenv(strings.ToUpper(id) + "_RPC")
		if rpc == "" {
			continue
		}
		found := false
		for i := range cfg.Chains {
			if strings.EqualFold(cfg.Chains[i].ID, id) {
				cfg.Chains[i].RPC = rpc
				found = true
			}
		}
		if !found {
			cfg.Chains = append(cfg.Chains, ChainOverride{ID: id, RPC: rpc})
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Fingerprints.Driver {
	case "memory":
	case "mongo":
		if cfg.Fingerprints.URI == "" {
			return fmt.Errorf("fingerprints.uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown fingerprints.driver %q", cfg.Fingerprints.Driver)
	}

	seen := make(map[string]struct{}, len(cfg.Chains))
	for _, c := range cfg.Chains {
		id := strings.ToLower(c.ID)
		if id == "" {
			return fmt.Errorf("chain override without id")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate chain override %q", c.ID)
		}
		seen[id] = struct{}{}
	}
	return nil
}
