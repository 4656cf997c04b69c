/*
config.go - Environment-driven configuration

PURPOSE:
  Loads server configuration from environment variables, with a .env
  file picked up for local development. Command-line flags in
  cmd/server override whatever is loaded here.

VARIABLES:
  PORT             HTTP server port (default 8080)
  DATABASE_PATH    SQLite database path (default rate-engine.db)
  CORS_ORIGINS     Comma-separated allowed origins (default *)
  METRICS_ENABLED  Expose /metrics (default true)
  SEED_DEMO        Load the demo scenario on startup (default false)

SEE ALSO:
  - cmd/server/main.go: flag overrides and startup sequence
*/
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port           int
	DBPath         string
	CORSOrigins    []string
	MetricsEnabled bool
	SeedDemo       bool
}

// Load reads configuration from the environment. A missing .env file
// is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:           getenvInt("PORT", 8080),
		DBPath:         getenv("DATABASE_PATH", "rate-engine.db"),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
		MetricsEnabled: getenvBool("METRICS_ENABLED", true),
		SeedDemo:       getenvBool("SEED_DEMO", false),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
