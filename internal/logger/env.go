package logger

import (
	"os"
	"strings"
)

// InitFromEnv configures the default logger from LOG_* variables.
func InitFromEnv() {
	Init(Config{
		Level:   getenvDefault("LOG_LEVEL", "info"),
		Format:  getenvDefault("LOG_FORMAT", "json"),
		Service: os.Getenv("LOG_SERVICE"),
		Env:     getenvDefault("LOG_ENV", os.Getenv("APP_ENV")),
		Output:  getenvDefault("LOG_OUTPUT", "stdout"),
	})
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
