package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/nwah/hudnav-server/geo"
)

const defaultMapboxURL = "https://api.mapbox.com"

type mapboxManeuver struct {
	Type        string    `json:"type" validate:"required"`
	Modifier    string    `json:"modifier"`
	Instruction string    `json:"instruction"`
	Location    []float64 `json:"location" validate:"len=2"` // lon, lat
}

type mapboxStep struct {
	Distance float64        `json:"distance" validate:"gte=0"` // meters
	Duration float64        `json:"duration" validate:"gte=0"` // seconds
	Name     string         `json:"name"`
	Maneuver mapboxManeuver `json:"maneuver"`
}

type mapboxLeg struct {
	Steps []mapboxStep `json:"steps" validate:"required,min=1,dive"`
}

type mapboxRoute struct {
	Distance float64           `json:"distance" validate:"gte=0"`
	Duration float64           `json:"duration" validate:"gte=0"`
	Geometry *geojson.Geometry `json:"geometry" validate:"-"`
	Legs     []mapboxLeg       `json:"legs" validate:"required,min=1,dive"`
}

type mapboxDirectionsResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Routes  []mapboxRoute `json:"routes" validate:"required,min=1,dive"`
}

type mapboxFeature struct {
	ID        string    `json:"id"`
	Text      string    `json:"text" validate:"required"`
	PlaceName string    `json:"place_name"`
	Center    []float64 `json:"center" validate:"len=2"` // lon, lat
	Relevance float64   `json:"relevance"`
	Context   []struct {
		ID        string `json:"id"`
		ShortCode string `json:"short_code"`
	} `json:"context"`
}

type mapboxGeocodeResponse struct {
	Features []mapboxFeature `json:"features" validate:"dive"`
}

func mapboxBaseURL() string {
	if navConfig.MapboxURL != "" {
		return strings.TrimRight(navConfig.MapboxURL, "/")
	}
	return defaultMapboxURL
}

func getMapboxProfile(mode TransportMode) string {
	switch mode {
	case ModeWalking:
		return "walking"
	case ModeBiking:
		return "cycling"
	default:
		return "driving"
	}
}

// routeMapbox calls the Mapbox Directions API
func routeMapbox(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	if navConfig.MapboxToken == "" {
		return nil, fmt.Errorf("mapbox access token is not configured")
	}

	params := url.Values{
		"steps":        {"true"},
		"geometries":   {"geojson"},
		"overview":     {"full"},
		"access_token": {navConfig.MapboxToken},
	}
	apiURL := fmt.Sprintf("%s/directions/v5/mapbox/%s/%.6f,%.6f;%.6f,%.6f?%s",
		mapboxBaseURL(), getMapboxProfile(req.Mode),
		req.FromLng, req.FromLat, req.ToLng, req.ToLat, params.Encode())

	status, body, err := fetch(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("mapbox: %w", err)
	}

	var mResp mapboxDirectionsResponse
	if err := json.Unmarshal(body, &mResp); err != nil {
		if status != http.StatusOK {
			return nil, fmt.Errorf("mapbox API returned status %d: %s", status, truncate(body))
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case mResp.Code == "NoRoute" || mResp.Code == "NoSegment":
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, mResp.Message)
	case status != http.StatusOK || mResp.Code != "Ok":
		msg := mResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d, code %q", status, mResp.Code)
		}
		return nil, fmt.Errorf("routing error: %s", msg)
	}
	if err := checkSchema(mResp); err != nil {
		return nil, err
	}

	r := mResp.Routes[0]
	result := &RouteResponse{
		Duration: r.Duration,
		Distance: convertDistance(r.Distance, req.Units),
		Units:    req.Units,
		Mode:     req.Mode,
		From:     Location{Desc: req.FromDesc, Lat: req.FromLat, Lng: req.FromLng},
		To:       Location{Desc: req.ToDesc, Lat: req.ToLat, Lng: req.ToLng},
	}

	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			loc := geo.FromLonLat([2]float64{s.Maneuver.Location[0], s.Maneuver.Location[1]})
			if !loc.Valid() {
				return nil, fmt.Errorf("%w: maneuver location %v out of range", ErrMalformedResponse, s.Maneuver.Location)
			}
			step := RouteStep{
				Number:      len(result.Steps) + 1,
				Description: abbreviateInstruction(s.Maneuver.Instruction),
				Distance:    convertDistance(s.Distance, req.Units),
				Meters:      s.Distance,
				Kind:        s.Maneuver.Type,
				Modifier:    s.Maneuver.Modifier,
				Lat:         loc.Lat,
				Lng:         loc.Lon,
			}
			step.Icon = stepIcon(step)
			result.Steps = append(result.Steps, step)
		}
	}

	if r.Geometry != nil {
		if line, ok := r.Geometry.Coordinates.(orb.LineString); ok {
			result.Path = newPath(line)
		}
	}
	return result, nil
}

// geocodeMapbox runs an autocomplete search against Mapbox Geocoding
func geocodeMapbox(ctx context.Context, q GeocodeQuery) ([]GeocodeResponse, error) {
	if navConfig.MapboxToken == "" {
		return nil, fmt.Errorf("mapbox access token is not configured")
	}

	params := url.Values{
		"access_token": {navConfig.MapboxToken},
		"autocomplete": {"true"},
		"limit":        {"5"},
	}
	if q.Near != nil {
		params.Set("proximity", fmt.Sprintf("%.6f,%.6f", q.Near.Lon, q.Near.Lat))
	}
	if q.Country != "" {
		params.Set("country", string(q.Country))
	}
	apiURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		mapboxBaseURL(), url.PathEscape(q.Text), params.Encode())

	var mResp mapboxGeocodeResponse
	if err := getJSON(ctx, apiURL, &mResp); err != nil {
		return nil, fmt.Errorf("mapbox: %w", err)
	}
	if err := checkSchema(mResp); err != nil {
		return nil, err
	}
	if len(mResp.Features) == 0 {
		return nil, &ErrNoResults{Query: q.Text}
	}

	results := make([]GeocodeResponse, 0, len(mResp.Features))
	for _, f := range mResp.Features {
		center := geo.FromLonLat([2]float64{f.Center[0], f.Center[1]})
		country := ""
		for _, c := range f.Context {
			if strings.HasPrefix(c.ID, "country.") {
				country = strings.ToLower(c.ShortCode)
			}
		}
		results = append(results, GeocodeResponse{
			ID:         f.ID,
			Name:       f.Text,
			Address:    f.PlaceName,
			Lat:        center.Lat,
			Lng:        center.Lon,
			Importance: f.Relevance,
			Country:    country,
		})
	}
	return results, nil
}
