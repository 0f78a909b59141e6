// Package audit records what a docchat command was started with: the
// command, the config file and every configuration variable that is set.
// Credentials appear as "set", never as their value.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/54b3r/docchat-go/internal/config"
	"github.com/54b3r/docchat-go/internal/version"
)

// secretSuffixes mark variables holding credentials.
var secretSuffixes = []string{"_API_KEY", "_SECRET_KEY", "_PUBLIC_KEY", "_TOKEN", "_SECRET_ACCESS_KEY", "_PASSWORD"}

// IsSecret reports whether the variable key holds a credential.
func IsSecret(key string) bool {
	key = strings.ToUpper(key)
	for _, s := range secretSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// SanitiseKey renders value for the log: "set" for credentials, the value
// itself otherwise, and "unset" when empty.
func SanitiseKey(key, value string) string {
	switch {
	case value == "":
		return "unset"
	case IsSecret(key):
		return "set"
	default:
		return value
	}
}

// LogCommandStart writes one audit record for command. Only variables that
// are set are listed, under the "env" group.
func LogCommandStart(ctx context.Context, log *slog.Logger, command, configPath string) {
	var env []any
	for _, key := range config.EnvKeys() {
		if v := os.Getenv(key); v != "" {
			env = append(env, slog.String(key, SanitiseKey(key, v)))
		}
	}
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start",
		slog.String("command", command),
		slog.String("version", version.Get().Version),
		slog.String("config_file", displayPath(configPath)),
		slog.Group("env", env...),
	)
}

// displayPath shortens the home directory to "~" and renders "" as "none".
func displayPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && strings.HasPrefix(p, home+string(os.PathSeparator)) {
		return "~" + p[len(home):]
	}
	return p
}
