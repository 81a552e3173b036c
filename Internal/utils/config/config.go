package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alphachart/doppelscan/Internal/vision"
)

type Config struct {
	Vision vision.Config `yaml:"vision"`
	Scan   ScanConfig    `yaml:"scan"`
	Data   DataConfig    `yaml:"data"`
}

type ScanConfig struct {
	Workers             int      `yaml:"workers"`
	FetchTimeoutSeconds int      `yaml:"fetch_timeout_seconds"`
	TopK                int      `yaml:"top_k"`
	MinSimilarity       float64  `yaml:"min_similarity"`
	UniverseLimit       int      `yaml:"universe_limit"`
	CloseOnly           bool     `yaml:"close_only"`
	Filters             []string `yaml:"filters"`
}

func (s ScanConfig) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSeconds) * time.Second
}

type DataConfig struct {
	// Source selects the history provider: "alpaca" or "yahoo".
	Source              string   `yaml:"source"`
	CacheEnabled        bool     `yaml:"cache_enabled"`
	CacheTTLHours       int      `yaml:"cache_ttl_hours"`
	ExcludeNamePatterns []string `yaml:"exclude_name_patterns"`
}

func (d DataConfig) CacheTTL() time.Duration {
	return time.Duration(d.CacheTTLHours) * time.Hour
}

func Default() *Config {
	return &Config{
		Vision: vision.DefaultConfig(),
		Scan: ScanConfig{
			Workers:             30,
			FetchTimeoutSeconds: 5,
			TopK:                10,
			MinSimilarity:       0,
			UniverseLimit:       200,
		},
		Data: DataConfig{
			Source:        "yahoo",
			CacheEnabled:  false,
			CacheTTLHours: 24,
		},
	}
}

// LoadConfig reads config.yaml, trying the package directory first and a
// handful of working-directory-relative locations after. A missing file
// is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	cfg := Default()

	possiblePaths := []string{}
	if _, filePath, _, ok := runtime.Caller(0); ok {
		possiblePaths = append(possiblePaths, filepath.Join(filepath.Dir(filePath), "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		possiblePaths = append(possiblePaths,
			filepath.Join(cwd, "Internal", "utils", "config", "config.yaml"),
			filepath.Join(cwd, "config.yaml"),
		)
	}
	possiblePaths = append(possiblePaths, "Internal/utils/config/config.yaml", "config.yaml")

	for _, path := range possiblePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return cfg, nil
}
