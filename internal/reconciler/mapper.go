package reconciler

import (
	"github.com/netspec/statusync/internal/statuspage"
	"github.com/netspec/statusync/internal/types"
)

// StatusMapping is the operator's choice of component status per severity
type StatusMapping struct {
	Warning  statuspage.Status
	Critical statuspage.Status
}

// StatusMapper turns an alert severity into a component status.
// Recovery always maps to Operational.
type StatusMapper struct {
	mapping StatusMapping
}

// NewStatusMapper creates a mapper for the given mapping
func NewStatusMapper(m StatusMapping) *StatusMapper {
	return &StatusMapper{mapping: m}
}

// Map returns the component status for sev
func (m *StatusMapper) Map(sev types.Severity) (statuspage.Status, error) {
	var s statuspage.Status
	switch sev {
	case types.SeverityOK:
		return statuspage.StatusOperational, nil
	case types.SeverityWarning:
		s = m.mapping.Warning
	case types.SeverityCritical:
		s = m.mapping.Critical
	default:
		return "", &ConfigurationError{Severity: sev, Reason: "unsupported severity"}
	}
	if s == "" {
		return "", &ConfigurationError{Severity: sev, Reason: "no status mapping configured"}
	}
	if !s.Valid() {
		return "", &ConfigurationError{Severity: sev, Reason: "invalid status " + string(s)}
	}
	return s, nil
}
