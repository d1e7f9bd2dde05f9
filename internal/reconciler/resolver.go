package reconciler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/netspec/statusync/internal/statuspage"
)

// ComponentResolver finds the status page component for a monitored host.
//
// The first component in listing order whose name is a candidate wins. The
// service does not guarantee listing order, so when the same name exists in
// several groups and no group scope is set the result is not deterministic.
type ComponentResolver struct {
	gateway    statuspage.Gateway
	groupScope statuspage.ID
	logger     zerolog.Logger
}

// NewComponentResolver creates a resolver. An empty groupScope matches any group.
func NewComponentResolver(gw statuspage.Gateway, groupScope statuspage.ID, logger zerolog.Logger) *ComponentResolver {
	return &ComponentResolver{
		gateway:    gw,
		groupScope: groupScope.Canonical(),
		logger:     logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the id of the first component named in names
func (r *ComponentResolver) Resolve(ctx context.Context, names []string) (statuspage.ID, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			wanted[n] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return "", ErrComponentNotFound
	}

	components, err := r.gateway.ListComponents(ctx)
	if err != nil {
		return "", fmt.Errorf("listing components: %w", err)
	}

	for _, c := range components {
		if _, ok := wanted[c.Name]; !ok {
			continue
		}
		if r.groupScope != "" && !c.GroupID().Same(r.groupScope) {
			r.logger.Debug().
				Str("name", c.Name).
				Str("group_id", string(c.GroupID())).
				Str("group_scope", string(r.groupScope)).
				Msg("Skipping component outside group scope")
			continue
		}
		r.logger.Debug().
			Str("name", c.Name).
			Str("component_id", string(c.ID)).
			Msg("Matched component")
		return c.ID, nil
	}
	r.logger.Debug().
		Strs("candidates", names).
		Int("components", len(components)).
		Msg("No component matched")
	return "", ErrComponentNotFound
}
