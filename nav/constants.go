package nav

// TransportMode represents the mode of transportation
type TransportMode string

const (
	ModeWalking TransportMode = "walking"
	ModeBiking  TransportMode = "biking"
	ModeAuto    TransportMode = "auto"
)

// DefaultMode is the default transport mode if none is specified
const DefaultMode = ModeAuto

// DistanceUnit represents the unit of measurement for distances
type DistanceUnit string

const (
	UnitKilometers DistanceUnit = "km"
	UnitMiles      DistanceUnit = "mi"
)

// DefaultUnit is the default distance unit if none is specified
const DefaultUnit = UnitKilometers

// CountryCode represents a two-letter ISO country code
type CountryCode string

// Routing and geocoding backends
const (
	BackendMapbox    = "mapbox"
	BackendValhalla  = "valhalla"
	BackendNominatim = "nominatim"
)

// NormalizedGridSize is the size of the normalized grid for path points
const NormalizedGridSize = 100

// MinQueryLength is the shortest query sent to the geocoder
const MinQueryLength = 3

// IsValid checks if the transport mode is valid
func (m TransportMode) IsValid() bool {
	switch m {
	case ModeWalking, ModeBiking, ModeAuto:
		return true
	default:
		return false
	}
}

// IsValid checks if the distance unit is valid
func (u DistanceUnit) IsValid() bool {
	switch u {
	case UnitKilometers, UnitMiles:
		return true
	default:
		return false
	}
}

// Imperial reports whether distances should be shown in feet and miles
func (u DistanceUnit) Imperial() bool {
	return u == UnitMiles
}

// IsValid checks if the country code is valid
func (c CountryCode) IsValid() bool {
	if len(c) != 2 {
		return false
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
