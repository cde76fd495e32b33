// Package config loads server configuration from environment variables and
// an optional .env file, with sane defaults for local development.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        int
	DBPath      string
	RedisAddr   string // empty disables the read cache
	CORSOrigins []string
}

// Load reads configuration. Environment variables override the .env file;
// a missing .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "docket.db")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cors_origins", "http://localhost:5173,http://localhost:8080")

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("db_path", "DB_PATH")
	_ = v.BindEnv("redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("cors_origins", "CORS_ORIGINS")

	cfg := &Config{
		Port:      v.GetInt("port"),
		DBPath:    v.GetString("db_path"),
		RedisAddr: v.GetString("redis_addr"),
	}
	for _, o := range strings.Split(v.GetString("cors_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}
