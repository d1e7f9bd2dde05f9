package reconciler

import (
	"time"

	"github.com/netspec/statusync/internal/statuspage"
	"github.com/netspec/statusync/internal/types"
)

// startTimeLayout is UTC with second precision, as the status page expects
const startTimeLayout = "2006-01-02T15:04:05Z"

func formatStartTime(t time.Time) *string {
	s := t.UTC().Truncate(time.Second).Format(startTimeLayout)
	return &s
}

// newIncidentPayload builds the body for opening an incident on a single
// component. Subscribers are not notified.
func newIncidentPayload(ev types.AlertEvent, description string, component statuspage.ID, status statuspage.Status, start time.Time) statuspage.IncidentPayload {
	return statuspage.IncidentPayload{
		Title:       ev.TitleText(),
		Description: description,
		StartTime:   formatStartTime(start),
		IsPrivate:   false,
		AffectedComponents: []statuspage.AffectedComponent{
			{Component: component, NewStatus: status},
		},
		Source:              nil,
		NotificationOptions: &statuspage.NotificationOptions{
			SendNotification: false,
			SendTweet:        false,
		},
	}
}

// statusUpdatePayload copies inc and sets every affected component to status.
// changed reports whether any component's recorded status differs.
func statusUpdatePayload(inc *statuspage.Incident, status statuspage.Status) (payload statuspage.IncidentPayload, changed bool) {
	payload = statuspage.IncidentPayload{
		Title:               inc.Title,
		Description:         inc.Description,
		StartTime:           inc.StartTime,
		EndTime:             inc.EndTime,
		IsPrivate:           inc.IsPrivate,
		AffectedComponents:  make([]statuspage.AffectedComponent, 0, len(inc.AffectedComponents)),
		Source:              inc.Source,
		NotificationOptions: inc.NotificationOptions,
	}
	for _, ac := range inc.AffectedComponents {
		if ac.NewStatus != status {
			changed = true
		}
		payload.AffectedComponents = append(payload.AffectedComponents, statuspage.AffectedComponent{
			Component: ac.Component,
			NewStatus: status,
		})
	}
	return payload, changed
}
