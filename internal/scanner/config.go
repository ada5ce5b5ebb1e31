package scanner

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// EnvConfig holds the scan settings read from the environment.
type EnvConfig struct {
	Workers int64
}

// LoadEnvConfig reads PESCAN_WORKERS, defaulting to sequential.
func LoadEnvConfig() *EnvConfig {
	workers := int64(1)
	if raw := os.Getenv("PESCAN_WORKERS"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			logrus.Infof("Invalid PESCAN_WORKERS %q. Defaulting to 1.", raw)
		} else {
			workers = n
		}
	}
	return &EnvConfig{Workers: workers}
}
