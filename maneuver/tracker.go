package maneuver

import (
	"errors"
	"sync"

	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/position"
)

// ErrInvalidRoute is returned when installing a route without steps
var ErrInvalidRoute = errors.New("route must contain at least one step")

// Tracker follows the driver along a route. It keeps a cursor on the
// maneuver expected next and moves it forward as fixes come in.
//
// The cursor never moves backwards. It only returns to 0 when a new route
// is installed. A cursor equal to len(route) means the driver has arrived.
type Tracker struct {
	mu            sync.RWMutex
	thresholds    Thresholds
	arriveOnFinal bool
	route         []Step
	cursor        int
}

// Option configures a Tracker
type Option func(*Tracker)

// WithThresholds overrides DefaultThresholds. Unset fields keep their
// default.
func WithThresholds(th Thresholds) Option {
	return func(t *Tracker) {
		t.thresholds = th.WithDefaults()
	}
}

// WithArriveOnFinalStep makes a fix within the arrival threshold of the
// last maneuver finish the route.
func WithArriveOnFinalStep(enabled bool) Option {
	return func(t *Tracker) {
		t.arriveOnFinal = enabled
	}
}

// NewTracker creates an idle tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{thresholds: DefaultThresholds}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InstallRoute replaces the active route and rewinds the cursor
func (t *Tracker) InstallRoute(steps []Step) error {
	if len(steps) == 0 {
		return ErrInvalidRoute
	}
	route := make([]Step, len(steps))
	copy(route, steps)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = route
	t.cursor = 0
	return nil
}

// Reset discards the route, returning the tracker to idle
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = nil
	t.cursor = 0
}

// OnFix evaluates a position fix and returns the resulting cursor.
//
// The primary rule advances when the fix is within the arrival threshold of
// the current maneuver. Otherwise the failsafe advances when the next
// maneuver is clearly closer than the current one, which happens when fixes
// are too sparse to ever land inside the arrival threshold.
func (t *Tracker) OnFix(fix position.Fix) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.route) == 0 || !fix.HasCoords() {
		return t.cursor
	}
	here := *fix.Coords
	last := len(t.route) - 1

	if t.cursor >= last {
		if t.cursor == last && t.arriveOnFinal &&
			geo.Distance(here, t.route[last].Location) < t.thresholds.Arrival {
			t.cursor = len(t.route)
		}
		return t.cursor
	}

	distToCurrent := geo.Distance(here, t.route[t.cursor].Location)
	if distToCurrent < t.thresholds.Arrival {
		t.advance()
		return t.cursor
	}

	distToNext := geo.Distance(here, t.route[t.cursor+1].Location)
	if distToNext < distToCurrent &&
		distToNext < t.thresholds.FailsafeMaxDistance &&
		distToCurrent-distToNext > t.thresholds.FailsafeMargin {
		t.advance()
	}
	return t.cursor
}

// SkipManual advances one maneuver regardless of position
func (t *Tracker) SkipManual() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.route) > 0 && t.cursor < len(t.route) {
		t.advance()
	}
	return t.cursor
}

// Arrive marks the route as finished
func (t *Tracker) Arrive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursor = len(t.route)
}

// advance moves the cursor one step, never past the last maneuver.
// Callers hold t.mu.
func (t *Tracker) advance() {
	if t.cursor < len(t.route)-1 {
		t.cursor++
	}
}

// Cursor returns the index of the current maneuver
func (t *Tracker) Cursor() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// State reports whether the tracker is idle, navigating or arrived
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state()
}

func (t *Tracker) state() State {
	switch {
	case len(t.route) == 0:
		return StateIdle
	case t.cursor >= len(t.route):
		return StateArrived
	default:
		return StateNavigating
	}
}

// CurrentStep returns the maneuver under the cursor, false when idle or arrived
func (t *Tracker) CurrentStep() (Step, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentStep()
}

func (t *Tracker) currentStep() (Step, bool) {
	if t.cursor < 0 || t.cursor >= len(t.route) {
		return Step{}, false
	}
	return t.route[t.cursor], true
}

// DistanceToCurrentStep returns meters from fix to the current maneuver
func (t *Tracker) DistanceToCurrentStep(fix position.Fix) (float64, bool) {
	step, ok := t.CurrentStep()
	if !ok || !fix.HasCoords() {
		return 0, false
	}
	return geo.Distance(*fix.Coords, step.Location), true
}

// Route returns a copy of the active route
func (t *Tracker) Route() []Step {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.route == nil {
		return nil
	}
	route := make([]Step, len(t.route))
	copy(route, t.route)
	return route
}

// Snapshot is a consistent view of the tracker at one instant
type Snapshot struct {
	State  State `json:"state"`
	Cursor int   `json:"cursor"`
	Total  int   `json:"total"`
	Step   *Step `json:"step,omitempty"`
}

// Snapshot reads state, cursor and current step under a single lock
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := Snapshot{State: t.state(), Cursor: t.cursor, Total: len(t.route)}
	if step, ok := t.currentStep(); ok {
		snap.Step = &step
	}
	return snap
}
