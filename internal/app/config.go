package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "CIPHERCHAT"

// Version is reported in log lines.
var Version = "dev"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home      string `mapstructure:"home"`      // config directory, e.g. $HOME/.cipherchat
	ServerURL string `mapstructure:"server"`    // relay base URL, e.g. http://127.0.0.1:8080
	Username  string `mapstructure:"username"`  // default account for commands that need one
	LogLevel  string `mapstructure:"log_level"` // zerolog level name

	HTTP *http.Client `mapstructure:"-"` // optional; defaults to http.DefaultClient
}

// Keys understood by LoadConfig. Flags should be bound under these names.
const (
	KeyHome     = "home"
	KeyServer   = "server"
	KeyUsername = "username"
	KeyLogLevel = "log_level"
)

// NewViper returns a viper instance with the CLI's defaults and environment
// binding. Callers bind their flags on it before LoadConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{KeyHome, KeyServer, KeyUsername, KeyLogLevel} {
		_ = v.BindEnv(key)
	}

	v.SetDefault(KeyServer, "http://127.0.0.1:8080")
	v.SetDefault(KeyLogLevel, "warn")
	return v
}

// DefaultHome returns $HOME/.cipherchat.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".cipherchat"), nil
}

// LoadConfig resolves the home directory, reads config.yaml from it when
// present and returns the merged configuration. The home directory is
// created with 0700 permissions.
func LoadConfig(v *viper.Viper) (Config, error) {
	home := v.GetString(KeyHome)
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return Config{}, fmt.Errorf("resolve home: %w", err)
		}
		v.Set(KeyHome, home)
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return Config{}, err
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.ServerURL == "" {
		return Config{}, errors.New("server URL is required (use --server or CIPHERCHAT_SERVER)")
	}
	return cfg, nil
}
