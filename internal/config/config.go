package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"ENV"`
	DBPath          string `mapstructure:"DB_PATH"`
	DBBusyTimeoutMS int    `mapstructure:"DB_BUSY_TIMEOUT_MS"`
	ExportDir       string `mapstructure:"EXPORT_DIR"`
	ReportDir       string `mapstructure:"REPORT_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PATH", "patients.db")
	v.SetDefault("DB_BUSY_TIMEOUT_MS", 5000)
	v.SetDefault("EXPORT_DIR", ".")
	v.SetDefault("REPORT_DIR", ".")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("DB_PATH")
	v.BindEnv("DB_BUSY_TIMEOUT_MS")
	v.BindEnv("EXPORT_DIR")
	v.BindEnv("REPORT_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH must not be empty")
	}
	if cfg.DBBusyTimeoutMS < 0 {
		return nil, fmt.Errorf("DB_BUSY_TIMEOUT_MS must not be negative")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
