package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads KEY=VALUE files into the process environment so that the
// *_env indirections in the config resolve. Variables already set in the
// environment win. Files that do not exist are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load env %q: %w", p, err)
		}
		slog.Debug("config: env file loaded", "path", p)
	}
	return nil
}
