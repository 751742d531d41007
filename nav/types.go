package nav

import (
	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/position"
)

// NavConfig holds navigation-specific configuration
type NavConfig struct {
	Router         string `toml:"router" yaml:"router" validate:"omitempty,oneof=mapbox valhalla"`
	Geocoder       string `toml:"geocoder" yaml:"geocoder" validate:"omitempty,oneof=mapbox nominatim"`
	MapboxURL      string `toml:"mapbox_url" yaml:"mapbox_url" validate:"omitempty,url"`
	MapboxToken    string `toml:"mapbox_token" yaml:"mapbox_token"`
	NominatimURL   string `toml:"nominatim_url" yaml:"nominatim_url" validate:"omitempty,url"`
	ValhallaURL    string `toml:"valhalla_url" yaml:"valhalla_url" validate:"omitempty,url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

// GeocodeResponse represents the response from the geocoding endpoint
type GeocodeResponse struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`    // Place name or street address
	Address    string  `json:"address"` // Simplified address (street, postal code, city)
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Importance float64 `json:"importance"` // Relevance score from 0 to 1
	Country    string  `json:"country"`    // Two-letter ISO country code
}

// GeocodeQuery holds the parameters of a geocoding search
type GeocodeQuery struct {
	Text    string
	Near    *geo.Point // bias results towards this point when supported
	Country CountryCode
}

// RouteRequest represents the parameters for a routing request
type RouteRequest struct {
	FromLat  float64       `json:"fromLat"`
	FromLng  float64       `json:"fromLng"`
	ToLat    float64       `json:"toLat"`
	ToLng    float64       `json:"toLng"`
	FromDesc string        `json:"fromDesc,omitempty"`
	ToDesc   string        `json:"toDesc,omitempty"`
	Mode     TransportMode `json:"mode"`
	Units    DistanceUnit  `json:"units"`
}

// RouteStep represents a single navigation step
type RouteStep struct {
	Number      int     `json:"number"`
	Description string  `json:"description"`
	Distance    float64 `json:"distance"` // in specified units
	Meters      float64 `json:"meters"`
	Icon        string  `json:"icon"` // Icon representing the step type
	Kind        string  `json:"kind,omitempty"`
	Modifier    string  `json:"modifier,omitempty"`
	Lat         float64 `json:"lat"` // Where the maneuver happens
	Lng         float64 `json:"lng"`
}

// PathPoint represents a normalized point on the route path
type PathPoint [2]int // [x, y] normalized to 0-NormalizedGridSize

// Path represents the complete path with metadata
type Path struct {
	Points []PathPoint `json:"points"` // Array of [x, y] points
	Length int         `json:"length"` // Number of points in the path
	Width  int         `json:"width"`  // Width of the normalized grid (NormalizedGridSize)
	Height int         `json:"height"` // Height of the normalized grid (NormalizedGridSize)
}

// Location represents a point with description and coordinates
type Location struct {
	Desc string  `json:"desc"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// RouteResponse represents the response from the routing endpoint
type RouteResponse struct {
	Duration float64       `json:"duration"` // in seconds
	Distance float64       `json:"distance"` // in specified units
	Units    DistanceUnit  `json:"units"`    // km or mi
	Steps    []RouteStep   `json:"steps"`
	Path     Path          `json:"path"` // Complete path with metadata
	Mode     TransportMode `json:"mode"` // The mode used for routing
	From     Location      `json:"from"` // Starting location
	To       Location      `json:"to"`   // Destination location
}

// FixRequest is a position update posted by the HUD client
type FixRequest struct {
	Lat     *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng     *float64 `json:"lng" validate:"omitempty,longitude"`
	Speed   *float64 `json:"speed" validate:"omitempty,gte=0"`
	Heading *float64 `json:"heading" validate:"omitempty,gte=0,lt=360"`
	// Error reports a permanent positioning failure: "denied" or "unsupported"
	Error string `json:"error,omitempty" validate:"omitempty,oneof=denied unsupported"`
}

// Fix converts the request into a position fix
func (r FixRequest) Fix() position.Fix {
	fix := position.Fix{Speed: r.Speed, Heading: r.Heading}
	if r.Lat != nil && r.Lng != nil {
		fix.Coords = &geo.Point{Lat: *r.Lat, Lon: *r.Lng}
	}
	return fix
}

// NavigateRequest asks a session to route to a destination
type NavigateRequest struct {
	Lat  float64 `json:"lat" validate:"latitude"`
	Lng  float64 `json:"lng" validate:"longitude"`
	Desc string  `json:"desc,omitempty"`
}

// UnitsRequest switches a session between metric and imperial display
type UnitsRequest struct {
	Imperial bool `json:"imperial"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
