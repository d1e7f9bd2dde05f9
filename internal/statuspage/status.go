package statuspage

import (
	"fmt"
	"strings"
)

// Status is a Freshstatus component status code
type Status string

const (
	StatusOperational         Status = "OP"
	StatusPerformanceDegraded Status = "PD"
	StatusPartialOutage       Status = "PO"
	StatusMajorOutage         Status = "MO"
	StatusUnderMaintenance    Status = "UM"
	// StatusResolved only appears on closed incidents and is never sent for a component
	StatusResolved Status = "CL"
)

var statusLabels = map[Status]string{
	StatusOperational:         "Operational",
	StatusPerformanceDegraded: "Performance Degraded",
	StatusPartialOutage:       "Partial Outage",
	StatusMajorOutage:         "Major Outage",
	StatusUnderMaintenance:    "Under Maintenance",
	StatusResolved:            "Resolved",
}

// ComponentStatuses lists the codes a component may be set to
var ComponentStatuses = []Status{
	StatusOperational,
	StatusPerformanceDegraded,
	StatusPartialOutage,
	StatusMajorOutage,
	StatusUnderMaintenance,
}

// Label returns the human readable name of the status
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s may be assigned to a component
func (s Status) Valid() bool {
	for _, c := range ComponentStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// ParseStatus accepts either a code ("MO") or a label ("Major Outage")
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, c := range ComponentStatuses {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, statusLabels[c]) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}
