package maneuver

import "github.com/nwah/hudnav-server/geo"

// Step is one maneuver of a route. Kind and Modifier carry the provider's
// maneuver classification and are only used to pick an icon.
type Step struct {
	Location       geo.Point `json:"location"`
	DistanceMeters float64   `json:"distanceMeters"`
	Instruction    string    `json:"instruction"`
	Kind           string    `json:"kind,omitempty"`
	Modifier       string    `json:"modifier,omitempty"`
}

// Thresholds tune when the tracker advances. All values are meters.
type Thresholds struct {
	// Arrival is the distance below which the current maneuver counts as reached
	Arrival float64
	// FailsafeMaxDistance caps how far the next maneuver may be for the failsafe to fire
	FailsafeMaxDistance float64
	// FailsafeMargin is how much closer the next maneuver must be than the current one
	FailsafeMargin float64
}

// DefaultThresholds are the empirically tuned values used when none are configured
var DefaultThresholds = Thresholds{
	Arrival:             60,
	FailsafeMaxDistance: 1000,
	FailsafeMargin:      50,
}

// WithDefaults returns th with every unset (zero or negative) field taken
// from DefaultThresholds
func (th Thresholds) WithDefaults() Thresholds {
	if th.Arrival <= 0 {
		th.Arrival = DefaultThresholds.Arrival
	}
	if th.FailsafeMaxDistance <= 0 {
		th.FailsafeMaxDistance = DefaultThresholds.FailsafeMaxDistance
	}
	if th.FailsafeMargin <= 0 {
		th.FailsafeMargin = DefaultThresholds.FailsafeMargin
	}
	return th
}

// State is the navigation state derived from the route and cursor
type State string

const (
	StateIdle       State = "idle"
	StateNavigating State = "navigating"
	StateArrived    State = "arrived"
)
