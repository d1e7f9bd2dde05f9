package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Severity is the alert severity reported by the host alerting system
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity string
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityOK:
		return SeverityOK, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// UnmarshalText lets Severity be decoded from JSON and YAML strings
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AlertEvent is a single alert delivery from the host alerting system.
// Resolved is true when the alert has cleared.
type AlertEvent struct {
	DeviceID  int64     `json:"device_id"`
	RuleID    int64     `json:"rule_id"`
	AlertID   int64     `json:"alert_id"`
	Hostname  string    `json:"hostname"`
	SysName   string    `json:"sys_name,omitempty"`
	Severity  Severity  `json:"severity"`
	Resolved  bool      `json:"resolved"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields every delivery needs
func (e AlertEvent) Validate() error {
	if e.Severity == "" {
		return errors.New("severity is required")
	}
	return nil
}

// TitleText returns the explicit title, or the first line of the message
func (e AlertEvent) TitleText() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	first, _, _ := strings.Cut(strings.TrimSpace(e.Message), "\n")
	return strings.TrimSpace(first)
}

// CandidateNames returns the component names this alert may map to, in preference order
func (e AlertEvent) CandidateNames() []string {
	names := make([]string, 0, 2)
	for _, n := range []string{e.Hostname, e.SysName} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}
