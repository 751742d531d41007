// Package session runs one navigation session: it keeps the latest fix,
// fetches routes, feeds the maneuver tracker and renders HUD frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/hud"
	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/position"
)

var (
	// ErrNoFix is returned when navigation starts before any location is known
	ErrNoFix = errors.New("could not get current location")
	// ErrNotFound is returned for unknown session ids
	ErrNotFound = errors.New("session not found")
)

// RouteProvider computes the maneuvers between two points
type RouteProvider interface {
	Directions(ctx context.Context, from, to geo.Point) ([]maneuver.Step, error)
}

// Phase is the screen the client should show
type Phase string

const (
	PhaseDestinationSelect Phase = "destination_select"
	PhaseLoading           Phase = "loading"
	PhaseNavigating        Phase = "navigating"
	PhaseError             Phase = "error"
)

// Config carries tracker and display tuning for new sessions
type Config struct {
	Thresholds        maneuver.Thresholds
	ArriveOnFinalStep bool
	AnimationFactor   float64
}

// Session is a single driver's navigation
type Session struct {
	ID string

	provider        RouteProvider
	tracker         *maneuver.Tracker
	animationFactor float64

	mu          sync.Mutex
	phase       Phase
	err         string
	positionErr string
	lastFix     *position.Fix
	imperial    bool
	destination *geo.Point
	generation  int

	subscription int
	unsubscribe  func()
}

// View is the state sent to clients
type View struct {
	ID            string     `json:"id"`
	Phase         Phase      `json:"phase"`
	Error         string     `json:"error,omitempty"`
	PositionError string     `json:"positionError,omitempty"`
	Imperial      bool       `json:"imperial"`
	Destination   *geo.Point `json:"destination,omitempty"`
	Frame         hud.Frame  `json:"frame"`
}

func newSession(id string, provider RouteProvider, cfg Config) *Session {
	return &Session{
		ID:              id,
		provider:        provider,
		tracker:         maneuver.NewTracker(maneuver.WithThresholds(cfg.Thresholds), maneuver.WithArriveOnFinalStep(cfg.ArriveOnFinalStep)),
		animationFactor: cfg.AnimationFactor,
		phase:           PhaseDestinationSelect,
	}
}

// Attach subscribes the session to a position source, replacing any
// previous subscription. The returned func drops this subscription only,
// so a stale connection closing cannot cut off the one that replaced it.
func (s *Session) Attach(src position.Source) (detach func()) {
	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = nil
	s.subscription++
	id := s.subscription
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	unsubscribe := src.Subscribe(func(fix position.Fix) {
		s.HandleFix(fix)
	}, s.HandlePositionError)

	s.mu.Lock()
	current := s.subscription == id
	if current {
		s.unsubscribe = unsubscribe
	}
	s.mu.Unlock()
	if !current {
		// replaced while subscribing
		unsubscribe()
	}

	return func() {
		s.mu.Lock()
		if s.subscription == id {
			s.unsubscribe = nil
		}
		s.mu.Unlock()
		unsubscribe()
	}
}

// Detach drops the current position subscription
func (s *Session) Detach() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.subscription++
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// HandleFix records the fix and, while navigating, lets the tracker act on it
func (s *Session) HandleFix(fix position.Fix) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFix = &fix
	s.positionErr = ""
	if s.phase == PhaseNavigating {
		before := s.tracker.Cursor()
		if after := s.tracker.OnFix(fix); after != before {
			log.Printf("Debug: Session %s advanced to step %d", s.ID, after)
		}
	}
	return s.view()
}

// HandlePositionError records a permanent positioning failure
func (s *Session) HandlePositionError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Printf("Debug: Session %s position error: %v", s.ID, err)
	s.positionErr = err.Error()
}

// Navigate fetches a route from the last known position to dest and
// starts following it. A newer Navigate or Exit while the route is being
// fetched wins over this one.
func (s *Session) Navigate(ctx context.Context, dest geo.Point) (View, error) {
	s.mu.Lock()
	if s.lastFix == nil || !s.lastFix.HasCoords() {
		s.phase = PhaseError
		s.err = "Could not get current location."
		v := s.view()
		s.mu.Unlock()
		return v, ErrNoFix
	}
	from := *s.lastFix.Coords
	s.generation++
	gen := s.generation
	s.phase = PhaseLoading
	s.err = ""
	s.destination = &dest
	s.mu.Unlock()

	log.Printf("Debug: Session %s routing %s -> %s", s.ID, from, dest)
	steps, err := s.provider.Directions(ctx, from, dest)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return s.view(), context.Canceled
	}
	if err == nil {
		err = s.tracker.InstallRoute(steps)
	}
	if err != nil {
		s.phase = PhaseError
		s.err = err.Error()
		return s.view(), fmt.Errorf("error fetching route: %w", err)
	}
	s.phase = PhaseNavigating
	log.Printf("Debug: Session %s navigating %d steps", s.ID, len(steps))
	return s.view(), nil
}

// Skip advances to the next maneuver on the driver's request
func (s *Session) Skip() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseNavigating {
		s.tracker.SkipManual()
	}
	return s.view()
}

// Exit abandons navigation and returns to destination selection
func (s *Session) Exit() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.tracker.Reset()
	s.phase = PhaseDestinationSelect
	s.err = ""
	s.destination = nil
	return s.view()
}

// SetImperial switches between km/h and mph display
func (s *Session) SetImperial(imperial bool) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imperial = imperial
	return s.view()
}

// View returns the current state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Tracker exposes the underlying maneuver tracker
func (s *Session) Tracker() *maneuver.Tracker {
	return s.tracker
}

func (s *Session) view() View {
	return View{
		ID:            s.ID,
		Phase:         s.phase,
		Error:         s.err,
		PositionError: s.positionErr,
		Imperial:      s.imperial,
		Destination:   s.destination,
		Frame: hud.BuildFrame(s.tracker.Snapshot(), s.lastFix, hud.Options{
			Imperial:        s.imperial,
			AnimationFactor: s.animationFactor,
		}),
	}
}
