// Package config loads the CLI configuration from flags, the environment,
// .env files and .pgorm.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/satishbabariya/pgorm/conn"
)

var AppFs = afero.NewOsFs()

// Config holds the application configuration
type Config struct {
	Driver             string
	DSN                string
	RescheduleInterval time.Duration
	Retries            int
	MinServerVersion   string
	Debug              bool
}

// Load resolves the configuration. Flags that were set win over the
// environment, which wins over the config file. .env.local overrides .env;
// neither replaces variables already present in the process environment.
func Load(fs afero.Fs, flags *pflag.FlagSet) (*Config, error) {
	if err := loadEnv(fs); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(".pgorm")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "pgorm"))
	}

	v.SetEnvPrefix("PGORM")
	v.AutomaticEnv()

	v.SetDefault("driver", "pgwire")
	v.SetDefault("reschedule_interval", conn.DefaultRescheduleInterval)
	v.SetDefault("retries", 3)
	v.SetDefault("debug", false)

	if flags != nil {
		for _, key := range []string{"driver", "dsn", "debug"} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			path := f.Value.String()
			if _, err := fs.Stat(path); err != nil {
				return nil, fmt.Errorf("config file: %w", err)
			}
			v.SetConfigFile(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Driver:             v.GetString("driver"),
		DSN:                v.GetString("dsn"),
		RescheduleInterval: v.GetDuration("reschedule_interval"),
		Retries:            v.GetInt("retries"),
		MinServerVersion:   v.GetString("min_server_version"),
		Debug:              v.GetBool("debug"),
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	if cfg.RescheduleInterval <= 0 {
		return nil, fmt.Errorf("reschedule_interval must be positive, got %s", cfg.RescheduleInterval)
	}
	return cfg, nil
}

func loadEnv(fs afero.Fs) error {
	// .env.local first so that it takes precedence over .env.
	for _, name := range []string{".env.local", ".env"} {
		f, err := fs.Open(name)
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k, val := range vars {
			if _, ok := os.LookupEnv(k); !ok {
				os.Setenv(k, val)
			}
		}
	}
	return nil
}
