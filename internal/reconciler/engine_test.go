package reconciler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netspec/statusync/internal/statuspage"
	"github.com/netspec/statusync/internal/types"
)

var testMapping = StatusMapping{
	Warning:  statuspage.StatusPerformanceDegraded,
	Critical: statuspage.StatusMajorOutage,
}

func newTestEngine(gw *fakeGateway, opts Options) *Engine {
	locator := NewMarkerLocator(gw, "", zerolog.Nop())
	resolver := NewComponentResolver(gw, "", zerolog.Nop())
	return NewEngine(gw, locator, resolver, NewStatusMapper(testMapping), opts, zerolog.Nop())
}

func routerAlert(sev types.Severity, resolved bool) types.AlertEvent {
	return types.AlertEvent{
		DeviceID:  1,
		RuleID:    2,
		AlertID:   3,
		Hostname:  "router1",
		SysName:   "router1.example.net",
		Severity:  sev,
		Resolved:  resolved,
		Title:     "Device router1 is down",
		Message:   "ICMP unreachable for 5 minutes",
		Timestamp: time.Date(2026, 10, 18, 12, 30, 45, 500, time.FixedZone("CEST", 2*3600)),
	}
}

type recorded struct {
	outcome, kind string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *fakeRecorder) RecordDelivery(outcome, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{outcome, kind})
}

func TestDecide_TransitionTable(t *testing.T) {
	assert.Equal(t, ActionNoop, Decide(false, true))
	assert.Equal(t, ActionCreate, Decide(false, false))
	assert.Equal(t, ActionResolve, Decide(true, true))
	assert.Equal(t, ActionUpdate, Decide(true, false))
}

func TestEngine_ClearWithoutIncidentIsNoop(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})

	res := e.Handle(context.Background(), routerAlert(types.SeverityOK, true))
	require.NoError(t, res.Err)
	assert.Equal(t, ActionNoop, res.Action)
	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Zero(t, gw.mutations())
}

func TestEngine_CreateCriticalIncident(t *testing.T) {
	gw := newFakeGateway(
		statuspage.Component{ID: "10", Name: "switch1"},
		statuspage.Component{ID: "11", Name: "router1"},
	)
	e := newTestEngine(gw, Options{})
	ev := routerAlert(types.SeverityCritical, false)

	assert.True(t, e.Deliver(context.Background(), ev))
	require.Len(t, gw.creates, 1)

	p := gw.creates[0]
	key := NewKey(1, 2, 3)
	assert.Equal(t, "Device router1 is down", p.Title)
	assert.True(t, strings.HasSuffix(p.Description, "\n"+key.Marker(DefaultMarkerPrefix)))
	assert.True(t, strings.HasPrefix(p.Description, ev.Message))
	require.NotNil(t, p.StartTime)
	assert.Equal(t, "2026-10-18T10:30:45Z", *p.StartTime)
	assert.False(t, p.IsPrivate)
	assert.Nil(t, p.Source)
	require.NotNil(t, p.NotificationOptions)
	assert.False(t, p.NotificationOptions.SendNotification)
	assert.False(t, p.NotificationOptions.SendTweet)
	assert.Equal(t, []statuspage.AffectedComponent{{Component: "11", NewStatus: "MO"}}, p.AffectedComponents)
}

func TestEngine_CreateComponentNotFound(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "10", Name: "switch1"})
	e := newTestEngine(gw, Options{})

	res := e.Handle(context.Background(), routerAlert(types.SeverityWarning, false))
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrComponentNotFound))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "component_not_found", ErrorKind(res.Err))
	assert.Zero(t, gw.mutations())
}

func TestEngine_UnchangedSeveritySkipsUpdate(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})
	ctx := context.Background()

	require.True(t, e.Deliver(ctx, routerAlert(types.SeverityWarning, false)))
	require.Len(t, gw.creates, 1)

	res := e.Handle(ctx, routerAlert(types.SeverityWarning, false))
	require.NoError(t, res.Err)
	assert.Equal(t, ActionUpdate, res.Action)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Empty(t, gw.updates)
	assert.Equal(t, 1, gw.gets)
}

func TestEngine_SeverityChangeUpdatesAllComponents(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})
	ctx := context.Background()

	require.True(t, e.Deliver(ctx, routerAlert(types.SeverityWarning, false)))

	// an operator attached a second component by hand
	gw.mu.Lock()
	inc := gw.incidents[gw.order[0]]
	inc.AffectedComponents = append(inc.AffectedComponents, statuspage.AffectedComponent{Component: "12", NewStatus: "PO"})
	end := "2026-10-19T00:00:00Z"
	inc.EndTime = &end
	inc.IsPrivate = true
	gw.mu.Unlock()

	res := e.Handle(ctx, routerAlert(types.SeverityCritical, false))
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	require.Len(t, gw.updates, 1)

	u := gw.updates[0]
	assert.Equal(t, []statuspage.AffectedComponent{
		{Component: "11", NewStatus: statuspage.StatusMajorOutage},
		{Component: "12", NewStatus: statuspage.StatusMajorOutage},
	}, u.AffectedComponents)
	assert.Equal(t, gw.creates[0].Title, u.Title)
	assert.Equal(t, gw.creates[0].Description, u.Description)
	assert.Equal(t, gw.creates[0].StartTime, u.StartTime)
	require.NotNil(t, u.EndTime)
	assert.Equal(t, end, *u.EndTime)
	assert.True(t, u.IsPrivate)
	assert.Equal(t, gw.creates[0].NotificationOptions, u.NotificationOptions)
}

func TestEngine_ResolveOpenIncident(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})
	ctx := context.Background()

	require.True(t, e.Deliver(ctx, routerAlert(types.SeverityCritical, false)))
	id := gw.order[0]

	res := e.Handle(ctx, routerAlert(types.SeverityOK, true))
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, []statuspage.ID{id}, gw.resolves)
	assert.Empty(t, gw.updates)

	// a redelivered clear finds nothing open
	res = e.Handle(ctx, routerAlert(types.SeverityOK, true))
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Len(t, gw.resolves, 1)
}

func TestEngine_SyncOnResolveForcesUpdate(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{SyncOnResolve: true, ResolveMessage: "all clear"})
	ctx := context.Background()

	require.True(t, e.Deliver(ctx, routerAlert(types.SeverityCritical, false)))
	require.True(t, e.Deliver(ctx, routerAlert(types.SeverityOK, true)))

	require.Len(t, gw.updates, 1)
	assert.Equal(t, statuspage.StatusOperational, gw.updates[0].AffectedComponents[0].NewStatus)
	assert.Len(t, gw.resolves, 1)
}

func TestEngine_MissingMappingIsConfigurationError(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := NewEngine(gw, NewMarkerLocator(gw, "", zerolog.Nop()), NewComponentResolver(gw, "", zerolog.Nop()),
		NewStatusMapper(StatusMapping{Critical: statuspage.StatusMajorOutage}), Options{}, zerolog.Nop())

	rec := &fakeRecorder{}
	e.SetRecorder(rec)

	assert.False(t, e.Deliver(context.Background(), routerAlert(types.SeverityWarning, false)))
	assert.Zero(t, gw.mutations())
	require.Len(t, rec.seen, 1)
	assert.Equal(t, recorded{"failed", "configuration"}, rec.seen[0])
}

func TestEngine_ServiceErrorPropagates(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	gw.failOn["create_incident"] = &statuspage.ServiceError{Op: "create_incident", StatusCode: 500, Body: "boom"}
	e := newTestEngine(gw, Options{})

	res := e.Handle(context.Background(), routerAlert(types.SeverityCritical, false))
	require.Error(t, res.Err)

	var serr *statuspage.ServiceError
	require.True(t, errors.As(res.Err, &serr))
	assert.Equal(t, 500, serr.StatusCode)
	assert.Equal(t, "boom", serr.Body)
	assert.Equal(t, "service", ErrorKind(res.Err))
}

func TestEngine_LocatorFailureStopsDelivery(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	gw.failOn["list_incidents"] = &statuspage.ServiceError{Op: "list_incidents", StatusCode: 503}
	e := newTestEngine(gw, Options{})

	assert.False(t, e.Deliver(context.Background(), routerAlert(types.SeverityCritical, false)))
	assert.Zero(t, gw.mutations())
}

func TestEngine_DistinctKeysGetDistinctIncidents(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})
	ctx := context.Background()

	a := routerAlert(types.SeverityCritical, false)
	b := a
	b.RuleID = 9

	require.True(t, e.Deliver(ctx, a))
	require.True(t, e.Deliver(ctx, b))
	assert.Len(t, gw.creates, 2)
}

// Two deliveries for a brand new key that both list incidents before either
// creates will each open an incident. Nothing on this side prevents it.
func TestEngine_ConcurrentFirstDeliveriesRace(t *testing.T) {
	gw := newFakeGateway(statuspage.Component{ID: "11", Name: "router1"})
	e := newTestEngine(gw, Options{})

	var listed sync.WaitGroup
	listed.Add(2)
	gw.afterListIncidents = func() {
		listed.Done()
		listed.Wait()
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Deliver(context.Background(), routerAlert(types.SeverityCritical, false))
		}()
	}
	wg.Wait()

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Len(t, gw.creates, 2, "duplicate incidents are a known limitation")
}
