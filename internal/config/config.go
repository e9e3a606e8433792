// Package config resolves a run configuration from flags, environment,
// an optional config file and a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labload/internal/runner"
)

// Keys shared by flags, env and config files.
const (
	KeyHost          = "host"
	KeyUsers         = "users"
	KeySpawnRate     = "spawn-rate"
	KeyRunTime       = "run-time"
	KeyTimeout       = "timeout"
	KeyWaitMin       = "wait-min"
	KeyWaitMax       = "wait-max"
	KeyOut           = "out"
	KeyEnableLogging = "enable_logging"
)

const (
	DefaultHost    = "http://localhost:8080"
	DefaultTimeout = 90
	EnvPrefix      = "LABLOAD"
)

var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyUsers, 1)
	v.SetDefault(KeySpawnRate, 1.0)
	v.SetDefault(KeyRunTime, time.Duration(0))
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyWaitMin, time.Second)
	v.SetDefault(KeyWaitMax, 3*time.Second)
	v.SetDefault(KeyOut, "")
	v.SetDefault(KeyEnableLogging, "True")
}

// BindEnv makes LABLOAD_<KEY> override any setting, and binds the bare
// ENABLE_LOGGING variable the scenario has always honoured.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v.BindEnv(KeyEnableLogging, "ENABLE_LOGGING")
}

// ReadFiles merges the .env file in dir (if any) and then cfgFile (if set).
// Environment variables still win over both.
func ReadFiles(v *viper.Viper, dir, cfgFile string) error {
	// viper folds keys to lower case, so ENABLE_LOGGING=... lands on KeyEnableLogging.
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		v.SetConfigFile(envPath)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", envPath, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("")
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

// LoggingEnabled applies the exact, case-sensitive "True" comparison.
func LoggingEnabled(raw string) bool {
	return raw == "True"
}

// Load resolves v into a validated runner configuration.
func Load(v *viper.Viper) (runner.Config, error) {
	cfg := runner.Config{
		Host:          v.GetString(KeyHost),
		TimeoutSec:    v.GetInt(KeyTimeout),
		EnableLogging: LoggingEnabled(v.GetString(KeyEnableLogging)),
		NumUsers:      v.GetInt(KeyUsers),
		SpawnRate:     v.GetFloat64(KeySpawnRate),
		RunTime:       v.GetDuration(KeyRunTime),
		WaitMin:       v.GetDuration(KeyWaitMin),
		WaitMax:       v.GetDuration(KeyWaitMax),
		OutPrefix:     v.GetString(KeyOut),
	}
	return cfg, Validate(cfg)
}

func Validate(cfg runner.Config) error {
	u, err := url.Parse(cfg.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: host %q must be an absolute http(s) URL", ErrInvalid, cfg.Host)
	}
	if cfg.NumUsers < 1 {
		return fmt.Errorf("%w: users must be at least 1, got %d", ErrInvalid, cfg.NumUsers)
	}
	if cfg.SpawnRate <= 0 {
		return fmt.Errorf("%w: spawn rate must be positive, got %g", ErrInvalid, cfg.SpawnRate)
	}
	if cfg.TimeoutSec <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %d", ErrInvalid, cfg.TimeoutSec)
	}
	if cfg.RunTime < 0 {
		return fmt.Errorf("%w: run time must not be negative", ErrInvalid)
	}
	if cfg.WaitMin < 0 || cfg.WaitMax < cfg.WaitMin {
		return fmt.Errorf("%w: wait range [%s, %s] is not ordered", ErrInvalid, cfg.WaitMin, cfg.WaitMax)
	}
	return nil
}
