package reconciler

import (
	"errors"
	"fmt"

	"github.com/netspec/statusync/internal/types"
)

// ErrComponentNotFound is returned when no status page component matches a new alert
var ErrComponentNotFound = errors.New("no matching status page component")

// ConfigurationError reports a missing or invalid severity mapping
type ConfigurationError struct {
	Severity types.Severity
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for severity %q: %s", e.Severity, e.Reason)
}
