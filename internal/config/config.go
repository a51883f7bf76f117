// Package config reads the service configuration from the environment,
// loading a .env file first when one is present.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"Civcalc/internal/calcerr"
)

type Config struct {
	Addr        string
	DatabaseURL string
	TokenKey    []byte
	// MaterialTable is a TOML file replacing the embedded BS 8110 table.
	MaterialTable string
	LogLevel      string
	TLSCert       string
	TLSKey        string
	// RateLimit and RateBurst configure the per-IP limiter on /api.
	RateLimit rate.Limit
	RateBurst int
}

// TLS reports whether both certificate files are configured.
func (c Config) TLS() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Load reads files (".env" when none are given) and then the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, calcerr.Wrap(calcerr.CodeInternal, err, "loading env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Config{
		Addr:          getenv("ADDR"),
		DatabaseURL:   getenv("DATABASE_URL"),
		TokenKey:      []byte(getenv("TOKEN_KEY")),
		MaterialTable: getenv("MATERIAL_TABLE"),
		LogLevel:      getenv("LOG_LEVEL"),
		TLSCert:       getenv("TLS_CERT"),
		TLSKey:        getenv("TLS_KEY"),
		RateLimit:     1,
		RateBurst:     3,
	}
	if len(c.TokenKey) == 0 {
		return Config{}, calcerr.Validation("TOKEN_KEY", nil, "TOKEN_KEY environment variable is not set")
	}
	if c.Addr == "" {
		c.Addr = ":8080"
		if c.TLS() {
			c.Addr = ":443"
		}
	}
	if v := getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, calcerr.Validation("RATE_LIMIT", v, "RATE_LIMIT must be a positive number of requests per second")
		}
		c.RateLimit = rate.Limit(f)
	}
	if v := getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, calcerr.Validation("RATE_BURST", v, "RATE_BURST must be a positive integer")
		}
		c.RateBurst = n
	}
	return c, nil
}
