package reconciler

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// DefaultMarkerPrefix labels the correlation key inside incident descriptions
const DefaultMarkerPrefix = "statusync-UID"

// Key identifies one monitored condition regardless of severity or message
type Key string

// keyFields is the canonical serialization; field order is part of the key
type keyFields struct {
	DeviceID int64 `json:"device_id"`
	RuleID   int64 `json:"rule_id"`
	AlertID  int64 `json:"id"`
}

// NewKey derives the key for a (device, rule, alert) triple
func NewKey(deviceID, ruleID, alertID int64) Key {
	// Marshalling a struct of int64 fields cannot fail
	b, _ := json.Marshal(keyFields{DeviceID: deviceID, RuleID: ruleID, AlertID: alertID})
	sum := sha1.Sum(b)
	return Key(hex.EncodeToString(sum[:]))
}

// Marker renders the key as it appears in an incident description
func (k Key) Marker(prefix string) string {
	if prefix == "" {
		prefix = DefaultMarkerPrefix
	}
	return prefix + ": " + string(k)
}
