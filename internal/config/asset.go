package config

import (
	"os"

	"github.com/rs/zerolog"
)

// LoadDecoration reads the optional background image. Relative paths are
// resolved against the working directory. Any failure means no decoration.
func LoadDecoration(path string, log zerolog.Logger) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No background image")
		return nil
	}
	return data
}
