package position

import (
	"errors"
	"time"

	"github.com/nwah/hudnav-server/geo"
)

var (
	// ErrPermissionDenied is reported when the user refused location access
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnsupported is reported when the device has no geolocation support
	ErrUnsupported = errors.New("geolocation is not supported")
)

// Fix is a single position update. Speed is in meters/second and Heading in
// degrees; both are optional as not every device reports them.
type Fix struct {
	Coords    *geo.Point `json:"coords"`
	Speed     *float64   `json:"speed,omitempty"`
	Heading   *float64   `json:"heading,omitempty"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
}

// At builds a fix carrying only a location
func At(p geo.Point) Fix {
	return Fix{Coords: &p}
}

// HasCoords reports whether the fix carries a usable location
func (f Fix) HasCoords() bool {
	return f.Coords != nil && f.Coords.Valid()
}

// WithSpeed returns a copy of f with the speed set
func (f Fix) WithSpeed(mps float64) Fix {
	f.Speed = &mps
	return f
}
