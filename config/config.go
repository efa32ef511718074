package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Config holds all configurable parameters for the application
type Config struct {
	// RateDivisor controls decay speed: tax per clock unit = stake / RateDivisor.
	RateDivisor uint64 `json:"rate_divisor"`
	// Admin is the identity allowed to reclaim the slot unconditionally.
	Admin string `json:"admin"`
	// TaxCollector receives the decayed portion of the stake on every take-over.
	TaxCollector string `json:"tax_collector"`
	// StorageDir is where the persistent ledger database and root file live.
	StorageDir string `json:"storage_dir"`
	// ListenPort is the HTTP port for slotd.
	ListenPort int `json:"listen_port"`
	// TestAccountNum is the number of accounts the seeding tool funds.
	TestAccountNum int `json:"test_account_num"`
}

// DefaultRateDivisor is used when the config omits rate_divisor.
// With unix-second clock units a stake decays fully in one day.
const DefaultRateDivisor = 86400

var (
	cachedConfig *Config
	cacheOnce    sync.Once
)

// Load reads and parses the config.json file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.RateDivisor == 0 {
		cfg.RateDivisor = DefaultRateDivisor
	}

	return cfg, nil
}

// LoadDefault loads the default config from config.json in the current directory
func LoadDefault() (*Config, error) {
	return Load("config/config.json")
}

// GetConfig returns the default config, loading it at most once.
// Falls back to built-in defaults when config.json is missing.
func GetConfig() *Config {
	cacheOnce.Do(func() {
		cfg, err := LoadDefault()
		if err != nil {
			cfg = &Config{
				RateDivisor:    DefaultRateDivisor,
				StorageDir:     "./storage/ledger",
				ListenPort:     8080,
				TestAccountNum: 16,
			}
		}
		cachedConfig = cfg
	})
	return cachedConfig
}
