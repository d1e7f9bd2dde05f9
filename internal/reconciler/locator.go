package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/netspec/statusync/internal/statuspage"
)

// Locator finds the open incident for a key and tags new incidents with it
type Locator interface {
	// Find returns the id of the open incident tagged with key, if any
	Find(ctx context.Context, key Key) (statuspage.ID, bool, error)
	// Tag returns description with the key attached
	Tag(description string, key Key) string
}

// MarkerLocator stores the key as a marker line in the incident description,
// since the status page has no custom fields.
type MarkerLocator struct {
	gateway statuspage.Gateway
	prefix  string
	logger  zerolog.Logger
}

var _ Locator = (*MarkerLocator)(nil)

// NewMarkerLocator creates a locator using prefix for the marker line
func NewMarkerLocator(gw statuspage.Gateway, prefix string, logger zerolog.Logger) *MarkerLocator {
	if prefix == "" {
		prefix = DefaultMarkerPrefix
	}
	return &MarkerLocator{
		gateway: gw,
		prefix:  prefix,
		logger:  logger.With().Str("component", "locator").Logger(),
	}
}

// Find scans the open incidents; this is linear in their number
func (l *MarkerLocator) Find(ctx context.Context, key Key) (statuspage.ID, bool, error) {
	incidents, err := l.gateway.ListIncidents(ctx)
	if err != nil {
		return "", false, fmt.Errorf("listing incidents: %w", err)
	}
	marker := key.Marker(l.prefix)
	for _, inc := range incidents {
		if strings.Contains(inc.Description, marker) {
			l.logger.Debug().
				Str("correlation_key", string(key)).
				Str("incident_id", string(inc.ID)).
				Msg("Located open incident")
			return inc.ID, true, nil
		}
	}
	l.logger.Debug().
		Str("correlation_key", string(key)).
		Int("open_incidents", len(incidents)).
		Msg("No open incident for key")
	return "", false, nil
}

// Tag appends the marker on its own line
func (l *MarkerLocator) Tag(description string, key Key) string {
	return description + "\n" + key.Marker(l.prefix)
}
