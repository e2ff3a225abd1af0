package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/kennel/internal/fetcher"
	"github.com/mesh-intelligence/kennel/internal/paths"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "KENNEL"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyWriteStrategy = "write_strategy"
	cfgKeyBatchInterval = "batch_interval"
	cfgKeyAPIBaseURL    = "api.base_url"
	cfgKeyAPIKey        = "api.key"
	cfgKeyAPITimeout    = "api.timeout"
	cfgKeyNATSURL       = "nats.url"
	cfgKeyNATSBucket    = "nats.bucket"
	cfgKeyLogLevel      = "log.level"
	cfgKeyLogFormat     = "log.format"
)

// configDefaults are applied before config.yaml and the environment.
var configDefaults = map[string]any{
	cfgKeyBackend:       types.BackendSQLite,
	cfgKeyWriteStrategy: types.WriteImmediate,
	cfgKeyBatchInterval: "2s",
	cfgKeyAPIBaseURL:    fetcher.DefaultBaseURL,
	cfgKeyAPIKey:        "",
	cfgKeyAPITimeout:    fetcher.DefaultTimeout.String(),
	cfgKeyNATSURL:       "",
	cfgKeyNATSBucket:    types.DefaultNATSBucket,
	cfgKeyLogLevel:      "warn",
	cfgKeyLogFormat:     "text",
}

// fileConfig is the layout of the config.yaml written on first run.
type fileConfig struct {
	Backend       string        `yaml:"backend"`
	DataDir       string        `yaml:"data_dir,omitempty"`
	WriteStrategy string        `yaml:"write_strategy"`
	BatchInterval string        `yaml:"batch_interval"`
	API           fileAPIConfig `yaml:"api"`
	NATS          fileNATS      `yaml:"nats"`
	Log           fileLog       `yaml:"log"`
}

type fileAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type fileNATS struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

type fileLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const configHeader = `# kennel configuration
#
# backend: sqlite, file, nats or memory
# write_strategy: immediate, on_close or batch (batch_interval applies)
# Every key can be overridden from the environment, for example
# KENNEL_API_KEY or KENNEL_LOG_LEVEL.

`

// loadDotEnv loads .env from the working directory. A missing file is not
// an error; variables already set win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Environment variables KENNEL_<KEY> (dots become
// underscores) override the file. data_dir is not bound to the
// environment: KENNEL_DATA_DIR ranks below config.yaml and is applied by
// paths.ResolveDataDir.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeDefaultConfig(configDir); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, def := range configDefaults {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// writeDefaultConfig creates config.yaml unless it already exists.
func writeDefaultConfig(configDir string) error {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := fileConfig{
		Backend:       types.BackendSQLite,
		WriteStrategy: types.WriteImmediate,
		BatchInterval: configDefaults[cfgKeyBatchInterval].(string),
		API: fileAPIConfig{
			BaseURL: fetcher.DefaultBaseURL,
			Timeout: fetcher.DefaultTimeout.String(),
		},
		NATS: fileNATS{Bucket: types.DefaultNATSBucket},
		Log:  fileLog{Level: "warn", Format: "text"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

// storeConfig builds the storage configuration from v and the resolved data
// directory.
func storeConfig(v *viper.Viper, dataDir string) (types.Config, error) {
	interval, err := parseDuration(v, cfgKeyBatchInterval)
	if err != nil {
		return types.Config{}, err
	}
	cfg := types.Config{
		Backend:       strings.TrimSpace(v.GetString(cfgKeyBackend)),
		DataDir:       dataDir,
		WriteStrategy: strings.TrimSpace(v.GetString(cfgKeyWriteStrategy)),
		BatchInterval: interval,
		NATS: types.NATSConfig{
			URL:    v.GetString(cfgKeyNATSURL),
			Bucket: v.GetString(cfgKeyNATSBucket),
		},
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fetcherConfig builds the remote API configuration from v.
func fetcherConfig(v *viper.Viper) (fetcher.Config, error) {
	timeout, err := parseDuration(v, cfgKeyAPITimeout)
	if err != nil {
		return fetcher.Config{}, err
	}
	return fetcher.Config{
		BaseURL: v.GetString(cfgKeyAPIBaseURL),
		APIKey:  v.GetString(cfgKeyAPIKey),
		Timeout: timeout,
	}, nil
}

// parseDuration reads a duration key. Bare numbers are taken as seconds.
func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(raw + "s"); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("invalid %s %q: want a duration such as 500ms or 10s", key, raw)
}
