package reconciler

import (
	"context"
	"strconv"
	"sync"

	"github.com/netspec/statusync/internal/statuspage"
)

// fakeGateway is an in-memory status page
type fakeGateway struct {
	mu         sync.Mutex
	components []statuspage.Component
	incidents  map[statuspage.ID]*statuspage.Incident
	order      []statuspage.ID
	nextID     int

	// afterListIncidents runs once a listing has been taken, if set
	afterListIncidents func()
	failOn             map[string]error

	creates  []statuspage.IncidentPayload
	updates  []statuspage.IncidentPayload
	resolves []statuspage.ID
	gets     int
}

func newFakeGateway(components ...statuspage.Component) *fakeGateway {
	return &fakeGateway{
		components: components,
		incidents:  make(map[statuspage.ID]*statuspage.Incident),
		nextID:     100,
		failOn:     make(map[string]error),
	}
}

func (f *fakeGateway) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOn[op]
}

func (f *fakeGateway) ListComponents(ctx context.Context) ([]statuspage.Component, error) {
	if err := f.fail("list_components"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statuspage.Component(nil), f.components...), nil
}

func (f *fakeGateway) ListIncidents(ctx context.Context) ([]statuspage.Incident, error) {
	if err := f.fail("list_incidents"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	out := make([]statuspage.Incident, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.incidents[id])
	}
	hook := f.afterListIncidents
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeGateway) GetIncident(ctx context.Context, id statuspage.ID) (*statuspage.Incident, error) {
	if err := f.fail("get_incident"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	inc, ok := f.incidents[id]
	if !ok {
		return nil, &statuspage.ServiceError{Op: "get_incident", StatusCode: 404, Body: "not found"}
	}
	cp := *inc
	cp.AffectedComponents = append([]statuspage.AffectedComponent(nil), inc.AffectedComponents...)
	return &cp, nil
}

func (f *fakeGateway) CreateIncident(ctx context.Context, p statuspage.IncidentPayload) (*statuspage.Incident, error) {
	if err := f.fail("create_incident"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, p)
	id := statuspage.ID(strconv.Itoa(f.nextID))
	f.nextID++
	inc := incidentFromPayload(id, p)
	f.incidents[id] = inc
	f.order = append(f.order, id)
	return inc, nil
}

func (f *fakeGateway) UpdateIncident(ctx context.Context, id statuspage.ID, p statuspage.IncidentPayload) (*statuspage.Incident, error) {
	if err := f.fail("update_incident"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
	inc := incidentFromPayload(id, p)
	f.incidents[id] = inc
	return inc, nil
}

func (f *fakeGateway) ResolveIncident(ctx context.Context, id statuspage.ID, message string) error {
	if err := f.fail("resolve_incident"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves = append(f.resolves, id)
	// resolved incidents drop out of the open listing
	delete(f.incidents, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeGateway) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates) + len(f.resolves)
}

func incidentFromPayload(id statuspage.ID, p statuspage.IncidentPayload) *statuspage.Incident {
	return &statuspage.Incident{
		ID:                  id,
		Title:               p.Title,
		Description:         p.Description,
		StartTime:           p.StartTime,
		EndTime:             p.EndTime,
		IsPrivate:           p.IsPrivate,
		AffectedComponents:  append([]statuspage.AffectedComponent(nil), p.AffectedComponents...),
		Source:              p.Source,
		NotificationOptions: p.NotificationOptions,
	}
}
