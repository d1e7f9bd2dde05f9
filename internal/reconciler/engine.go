package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/netspec/statusync/internal/statuspage"
	"github.com/netspec/statusync/internal/types"
)

// DefaultResolveMessage is posted when an incident is closed
const DefaultResolveMessage = "Resolved automatically by statusync."

// Action is what the engine decided to do for an event
type Action string

const (
	ActionNoop    Action = "noop"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionResolve Action = "resolve"
)

// Outcome is the result of a reconciliation
type Outcome string

const (
	OutcomeNoop      Outcome = "noop"
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeResolved  Outcome = "resolved"
	OutcomeFailed    Outcome = "failed"
)

type transition struct {
	located  bool
	resolved bool
}

// transitions covers every (incident located, event resolved) pair
var transitions = map[transition]Action{
	{located: false, resolved: true}:  ActionNoop,
	{located: false, resolved: false}: ActionCreate,
	{located: true, resolved: true}:   ActionResolve,
	{located: true, resolved: false}:  ActionUpdate,
}

// Decide returns the action for the given state
func Decide(located, resolved bool) Action {
	return transitions[transition{located: located, resolved: resolved}]
}

// Recorder receives one call per delivered event
type Recorder interface {
	RecordDelivery(outcome string, errorKind string)
}

// Options tunes the engine
type Options struct {
	ResolveMessage string
	// SyncOnResolve sets all components back to Operational before resolving
	SyncOnResolve bool
}

// Engine reconciles alert events with status page incidents. It keeps no
// state of its own; every call re-reads the status page.
type Engine struct {
	gateway  statuspage.Gateway
	locator  Locator
	resolver *ComponentResolver
	mapper   *StatusMapper
	opts     Options
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewEngine creates a new reconciliation engine
func NewEngine(gw statuspage.Gateway, locator Locator, resolver *ComponentResolver, mapper *StatusMapper, opts Options, logger zerolog.Logger) *Engine {
	if opts.ResolveMessage == "" {
		opts.ResolveMessage = DefaultResolveMessage
	}
	return &Engine{
		gateway:  gw,
		locator:  locator,
		resolver: resolver,
		mapper:   mapper,
		opts:     opts,
		logger:   logger.With().Str("component", "reconciler").Logger(),
		now:      time.Now,
	}
}

// SetRecorder attaches a delivery recorder
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Result describes one delivery
type Result struct {
	DeliveryID string
	Key        Key
	Action     Action
	Outcome    Outcome
	IncidentID statuspage.ID
	Err        error
}

// Deliver handles ev and reports whether it completed without error
func (e *Engine) Deliver(ctx context.Context, ev types.AlertEvent) bool {
	return e.Handle(ctx, ev).Err == nil
}

// Handle reconciles ev and logs and records the result
func (e *Engine) Handle(ctx context.Context, ev types.AlertEvent) Result {
	res := e.Reconcile(ctx, ev)
	res.DeliveryID = uuid.New().String()

	log := e.logger.With().
		Str("delivery_id", res.DeliveryID).
		Str("correlation_key", string(res.Key)).
		Int64("device_id", ev.DeviceID).
		Int64("rule_id", ev.RuleID).
		Int64("alert_id", ev.AlertID).
		Str("severity", string(ev.Severity)).
		Bool("resolved", ev.Resolved).
		Str("action", string(res.Action)).
		Logger()

	if res.Err != nil {
		log.Error().
			Err(res.Err).
			Str("error_kind", ErrorKind(res.Err)).
			Msg("Alert delivery failed")
	} else {
		log.Info().
			Str("outcome", string(res.Outcome)).
			Str("incident_id", string(res.IncidentID)).
			Msg("Alert delivered")
	}

	if e.recorder != nil {
		e.recorder.RecordDelivery(string(res.Outcome), ErrorKind(res.Err))
	}
	return res
}

// Reconcile brings the status page in line with ev
func (e *Engine) Reconcile(ctx context.Context, ev types.AlertEvent) Result {
	res := Result{Key: NewKey(ev.DeviceID, ev.RuleID, ev.AlertID)}

	id, located, err := e.locator.Find(ctx, res.Key)
	if err != nil {
		return res.fail(err)
	}
	res.IncidentID = id
	res.Action = Decide(located, ev.Resolved)

	switch res.Action {
	case ActionNoop:
		res.Outcome = OutcomeNoop
	case ActionCreate:
		res.IncidentID, err = e.create(ctx, ev, res.Key)
		res.Outcome = OutcomeCreated
	case ActionUpdate:
		var changed bool
		changed, err = e.update(ctx, ev, id)
		res.Outcome = OutcomeUnchanged
		if changed {
			res.Outcome = OutcomeUpdated
		}
	case ActionResolve:
		err = e.resolve(ctx, id)
		res.Outcome = OutcomeResolved
	default:
		err = fmt.Errorf("no transition for located=%t resolved=%t", located, ev.Resolved)
	}
	if err != nil {
		return res.fail(err)
	}
	return res
}

func (r Result) fail(err error) Result {
	r.Outcome = OutcomeFailed
	r.Err = err
	return r
}

func (e *Engine) create(ctx context.Context, ev types.AlertEvent, key Key) (statuspage.ID, error) {
	status, err := e.mapper.Map(ev.Severity)
	if err != nil {
		return "", err
	}
	component, err := e.resolver.Resolve(ctx, ev.CandidateNames())
	if err != nil {
		if errors.Is(err, ErrComponentNotFound) {
			return "", fmt.Errorf("%w: %v", ErrComponentNotFound, ev.CandidateNames())
		}
		return "", err
	}

	start := ev.Timestamp
	if start.IsZero() {
		start = e.now()
	}
	payload := newIncidentPayload(ev, e.locator.Tag(ev.Message, key), component, status, start)
	inc, err := e.gateway.CreateIncident(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("creating incident: %w", err)
	}
	return inc.ID, nil
}

// update pushes the mapped status for ev onto every component of the
// incident. Nothing is sent when all statuses already match.
func (e *Engine) update(ctx context.Context, ev types.AlertEvent, id statuspage.ID) (bool, error) {
	status, err := e.mapper.Map(ev.Severity)
	if err != nil {
		return false, err
	}
	return e.setStatus(ctx, id, status, false)
}

func (e *Engine) setStatus(ctx context.Context, id statuspage.ID, status statuspage.Status, force bool) (bool, error) {
	inc, err := e.gateway.GetIncident(ctx, id)
	if err != nil {
		return false, fmt.Errorf("fetching incident %s: %w", id, err)
	}
	payload, changed := statusUpdatePayload(inc, status)
	if !changed && !force {
		return false, nil
	}
	if _, err := e.gateway.UpdateIncident(ctx, id, payload); err != nil {
		return false, fmt.Errorf("updating incident %s: %w", id, err)
	}
	return true, nil
}

func (e *Engine) resolve(ctx context.Context, id statuspage.ID) error {
	if e.opts.SyncOnResolve {
		if _, err := e.setStatus(ctx, id, statuspage.StatusOperational, true); err != nil {
			return err
		}
	}
	if err := e.gateway.ResolveIncident(ctx, id, e.opts.ResolveMessage); err != nil {
		return fmt.Errorf("resolving incident %s: %w", id, err)
	}
	return nil
}

// ErrorKind classifies err for logs and metrics
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var cerr *ConfigurationError
	var serr *statuspage.ServiceError
	switch {
	case errors.As(err, &cerr):
		return "configuration"
	case errors.Is(err, ErrComponentNotFound):
		return "component_not_found"
	case errors.As(err, &serr):
		return "service"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
