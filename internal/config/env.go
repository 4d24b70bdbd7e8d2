// Package config holds the runtime knobs for the Kaskade control plane and
// the env-var loading helpers used to populate them, following the same
// "load .env, then read process env with defaults" flow the teacher bot
// used (env.go), swapping the hand-rolled .env scanner for godotenv.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads ./.env and ../.env if present, without overriding
// variables already set in the process environment. Missing files are not
// an error — operators may configure purely via the real environment.
func LoadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		_ = godotenv.Load(path)
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}
