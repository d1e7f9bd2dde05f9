package statuspage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a Freshstatus object id. The API returns numbers but expects
// component references as strings, so both forms are accepted.
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// Canonical returns numeric ids without leading zeros or padding, so "042"
// and 42 name the same object. Other ids are returned unchanged.
func (id ID) Canonical() ID {
	s := strings.TrimSpace(string(id))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10))
	}
	return id
}

// Same reports whether id and other name the same object
func (id ID) Same(other ID) bool {
	return id.Canonical() == other.Canonical()
}

// Group is the component group a service belongs to
type Group struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// Component is a Freshstatus service (component)
type Component struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Group *Group `json:"group,omitempty"`
}

// GroupID returns the id of the component's group, or "" when ungrouped
func (c Component) GroupID() ID {
	if c.Group == nil {
		return ""
	}
	return c.Group.ID
}

// AffectedComponent is a component attached to an incident with its status
type AffectedComponent struct {
	Component ID     `json:"component"`
	NewStatus Status `json:"new_status"`
}

// NotificationOptions controls subscriber notifications for an incident
type NotificationOptions struct {
	SendNotification bool `json:"send_notification"`
	SendTweet        bool `json:"send_tweet"`
}

// Incident is a Freshstatus incident
type Incident struct {
	ID                  ID                   `json:"id,omitempty"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	StartTime           *string              `json:"start_time"`
	EndTime             *string              `json:"end_time"`
	IsPrivate           bool                 `json:"is_private"`
	AffectedComponents  []AffectedComponent  `json:"affected_components"`
	Source              json.RawMessage      `json:"source"`
	NotificationOptions *NotificationOptions `json:"notification_options"`
}

// IncidentPayload is the body of a create or update request
type IncidentPayload struct {
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	StartTime           *string              `json:"start_time"`
	EndTime             *string              `json:"end_time,omitempty"`
	IsPrivate           bool                 `json:"is_private"`
	AffectedComponents  []AffectedComponent  `json:"affected_components"`
	Source              json.RawMessage      `json:"source"`
	NotificationOptions *NotificationOptions `json:"notification_options"`
}

type resolveRequest struct {
	Message string `json:"message"`
}

type page[T any] struct {
	Results []T    `json:"results"`
	Next    string `json:"next"`
}
