package ports

import (
	"fmt"

	"ids-go/internal/config"
	"ids-go/internal/ids"
)

// NewEnumeratorFromConfig creates a PortEnumerator based on the ports config.
// It returns nil when port enumeration is disabled.
func NewEnumeratorFromConfig(cfg config.PortsConfig, logger ids.Logger) (ids.PortEnumerator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Enumerator {
	case "gopsutil", "":
		return NewPsutilEnumerator(logger), nil
	case "procnet":
		return NewProcNetEnumerator(logger), nil
	default:
		return nil, fmt.Errorf("unknown port enumerator: %q", cfg.Enumerator)
	}
}
