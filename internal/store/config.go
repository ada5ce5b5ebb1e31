package store

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config selects the store backend. Loaded from the environment so a
// .env file next to the binary can pin it.
type Config struct {
	Type string // "bolt" or "sqlite"
}

// LoadConfig reads PESCAN_STORE, defaulting to bolt.
func LoadConfig() (*Config, error) {
	storeType := os.Getenv("PESCAN_STORE")
	if storeType == "" {
		storeType = "bolt"
	}
	switch storeType {
	case "bolt", "sqlite":
		return &Config{Type: storeType}, nil
	default:
		return nil, fmt.Errorf("unsupported PESCAN_STORE: %s", storeType)
	}
}

// Open creates the configured backend at path. This is the one fatal
// failure point of a run: callers abort before scanning when it errors.
func Open(cfg *Config, path string, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(path, logger)
	default:
		return NewBoltStore(path, logger)
	}
}
