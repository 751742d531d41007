package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/paulmach/orb"

	"github.com/nwah/hudnav-server/hud"
	"github.com/nwah/hudnav-server/maneuver"
)

type valhallaLocation struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Type string  `json:"type"`
}

type valhallaRequest struct {
	Locations      []valhallaLocation `json:"locations"`
	Costing        string             `json:"costing"`
	Units          string             `json:"units"`
	CostingOptions map[string]any     `json:"costing_options,omitempty"`
}

type valhallaManeuver struct {
	Type            int     `json:"type" validate:"gte=0"`
	Instruction     string  `json:"instruction"`
	Distance        float64 `json:"length" validate:"gte=0"` // kilometers
	BeginShapeIndex int     `json:"begin_shape_index" validate:"gte=0"`
}

type valhallaLeg struct {
	Maneuvers []valhallaManeuver `json:"maneuvers" validate:"required,min=1,dive"`
	Shape     string             `json:"shape" validate:"required"`
}

type valhallaResponse struct {
	Trip struct {
		Legs    []valhallaLeg `json:"legs" validate:"required,min=1,dive"`
		Summary struct {
			Time     float64 `json:"time"`
			Distance float64 `json:"length"`
		} `json:"summary"`
	} `json:"trip"`
}

type valhallaError struct {
	ErrorCode  int    `json:"error_code"`
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
}

const (
	metersPerMile = 1609.344

	// Valhalla encodes shapes with six decimal digits
	valhallaPrecision = 6

	// Valhalla error code for locations not connected in the graph
	valhallaNoRoute = 170
)

func getValhallaCosting(mode TransportMode) string {
	switch mode {
	case ModeWalking:
		return "pedestrian"
	case ModeBiking:
		return "bicycle"
	default:
		return "auto"
	}
}

func convertDistance(meters float64, units DistanceUnit) float64 {
	if units == UnitMiles {
		return meters / metersPerMile
	}
	return meters / 1000 // convert to kilometers
}

// decodePolyline decodes an encoded polyline into lon/lat points
func decodePolyline(encoded string, precision int) orb.LineString {
	factor := math.Pow10(precision)

	lat, lng := 0, 0
	var line orb.LineString
	index := 0

	next := func() (int, bool) {
		b := 0x20
		shift, result := 0, 0
		for b >= 0x20 {
			if index >= len(encoded) {
				return 0, false
			}
			b = int(encoded[index]) - 63
			result |= (b & 0x1f) << shift
			shift += 5
			index++
		}
		// check if we need to go negative or not
		if (result & 1) > 0 {
			return ^(result >> 1), true
		}
		return result >> 1, true
	}

	for index < len(encoded) {
		dLat, ok := next()
		if !ok {
			break
		}
		dLng, ok := next()
		if !ok {
			break
		}
		lat += dLat
		lng += dLng
		line = append(line, orb.Point{float64(lng) / factor, float64(lat) / factor})
	}

	return line
}

// newPath normalizes a route line onto the NormalizedGridSize grid, dropping
// points that land within 2 units of one already kept.
func newPath(line orb.LineString) Path {
	path := Path{Points: []PathPoint{}, Width: NormalizedGridSize, Height: NormalizedGridSize}
	if len(line) == 0 {
		return path
	}

	bound := line.Bound()
	lngRange := bound.Max.Lon() - bound.Min.Lon()
	if lngRange == 0 {
		lngRange = 1 // Avoid division by zero
	}
	latRange := bound.Max.Lat() - bound.Min.Lat()
	if latRange == 0 {
		latRange = 1
	}

	for _, p := range line {
		x := int(math.Round((p.Lon() - bound.Min.Lon()) / lngRange * NormalizedGridSize))
		y := int(math.Round((p.Lat() - bound.Min.Lat()) / latRange * NormalizedGridSize))
		x = max(0, min(NormalizedGridSize, x))
		y = max(0, min(NormalizedGridSize, y))

		isDuplicate := false
		for _, existing := range path.Points {
			// Manhattan distance
			if abs(x-existing[0])+abs(y-existing[1]) <= 2 {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			path.Points = append(path.Points, PathPoint{x, y})
		}
	}

	path.Length = len(path.Points)
	return path
}

// abs returns the absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Helper function to abbreviate street names in instructions
func abbreviateInstruction(instruction string) string {
	// Replace "You have arrived at your destination." with "Arrive at destination"
	if strings.Contains(instruction, "You have arrived at your destination") {
		return "Arrive at destination"
	}

	// Remove trailing period
	instruction = strings.TrimSuffix(instruction, ".")

	// Abbreviate common words
	instruction = strings.ReplaceAll(instruction, " onto ", " on ")
	for long, short := range instructionAbbrev {
		instruction = strings.ReplaceAll(instruction, long, short)
	}
	return instruction
}

var instructionAbbrev = map[string]string{
	" Avenue":     " Ave",
	" Street":     " St",
	" Road":       " Rd",
	" Boulevard":  " Blvd",
	" Drive":      " Dr",
	" Court":      " Ct",
	" Circle":     " Cir",
	" Highway":    " Hwy",
	" Parkway":    " Pkwy",
	" Place":      " Pl",
	" Square":     " Sq",
	" Terrace":    " Ter",
	" Trail":      " Trl",
	" Turnpike":   " Tpke",
	" Lane":       " Ln",
	" North ":     " N ",
	" South ":     " S ",
	" East ":      " E ",
	" West ":      " W ",
	" Northeast ": " NE ",
	" Northwest ": " NW ",
	" Southeast ": " SE ",
	" Southwest ": " SW ",
}

// valhallaManeuverKind maps a Valhalla maneuver type onto the
// Mapbox-style type/modifier pair the rest of the server uses
func valhallaManeuverKind(maneuverType int) (kind, modifier string) {
	switch maneuverType {
	case 1:
		return "depart", ""
	case 2:
		return "depart", "right"
	case 3:
		return "depart", "left"
	case 4, 5, 6:
		return "arrive", ""
	case 7, 8, 17, 22:
		return "continue", "straight"
	case 9, 23:
		return "turn", "slight right"
	case 10:
		return "turn", "right"
	case 11:
		return "turn", "sharp right"
	case 12, 13:
		return "turn", "uturn"
	case 14:
		return "turn", "sharp left"
	case 15:
		return "turn", "left"
	case 16, 24:
		return "turn", "slight left"
	case 18, 20:
		return "off ramp", "right"
	case 19, 21:
		return "off ramp", "left"
	case 25:
		return "merge", ""
	case 37:
		return "merge", "slight right"
	case 38:
		return "merge", "slight left"
	case 26, 27:
		return "roundabout", ""
	case 28, 29:
		return "notification", ""
	default:
		return "", ""
	}
}

// stepIcon names the display icon for a step
func stepIcon(step RouteStep) string {
	return string(hud.IconFor(maneuver.Step{Kind: step.Kind, Modifier: step.Modifier}))
}

func route(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	// Validate units
	if req.Units == "" {
		req.Units = DefaultUnit
	} else if !req.Units.IsValid() {
		return nil, fmt.Errorf("invalid units: must be one of: %s, %s", UnitKilometers, UnitMiles)
	}
	if req.Mode == "" {
		req.Mode = DefaultMode
	}

	if navConfig.Router == BackendValhalla {
		return routeValhalla(ctx, req)
	}
	return routeMapbox(ctx, req)
}

// routeValhalla calls Valhalla's /route endpoint
func routeValhalla(ctx context.Context, req RouteRequest) (*RouteResponse, error) {
	if navConfig.ValhallaURL == "" {
		return nil, fmt.Errorf("valhalla URL is not configured")
	}

	vReq := valhallaRequest{
		Locations: []valhallaLocation{
			{Lat: req.FromLat, Lon: req.FromLng, Type: "break"},
			{Lat: req.ToLat, Lon: req.ToLng, Type: "break"},
		},
		Costing: getValhallaCosting(req.Mode),
		// lengths come back in kilometers and are converted locally
		Units: "kilometers",
		CostingOptions: map[string]any{
			getValhallaCosting(req.Mode): map[string]any{
				"use_display_name": false,
			},
		},
	}

	reqBody, err := json.Marshal(vReq)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	status, body, err := fetch(ctx, http.MethodPost, navConfig.ValhallaURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("valhalla: %w", err)
	}

	if status != http.StatusOK {
		var vErr valhallaError
		if err := json.Unmarshal(body, &vErr); err == nil && vErr.ErrorCode != 0 {
			if vErr.ErrorCode == valhallaNoRoute {
				return nil, fmt.Errorf("%w: locations are not connected in the transportation network", ErrNoRoute)
			}
			return nil, fmt.Errorf("routing error: %s", vErr.Error)
		}
		return nil, fmt.Errorf("valhalla API returned status %d: %s", status, truncate(body))
	}

	var vResp valhallaResponse
	if err := json.Unmarshal(body, &vResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := checkSchema(vResp); err != nil {
		return nil, err
	}

	result := &RouteResponse{
		Duration: vResp.Trip.Summary.Time,
		Distance: convertDistance(vResp.Trip.Summary.Distance*1000, req.Units),
		Units:    req.Units,
		Mode:     req.Mode,
		From:     Location{Desc: req.FromDesc, Lat: req.FromLat, Lng: req.FromLng},
		To:       Location{Desc: req.ToDesc, Lat: req.ToLat, Lng: req.ToLng},
	}

	var line orb.LineString
	for _, leg := range vResp.Trip.Legs {
		shape := decodePolyline(leg.Shape, valhallaPrecision)
		for _, m := range leg.Maneuvers {
			if m.BeginShapeIndex >= len(shape) {
				return nil, fmt.Errorf("%w: shape index %d beyond %d points", ErrMalformedResponse, m.BeginShapeIndex, len(shape))
			}
			at := shape[m.BeginShapeIndex]
			kind, modifier := valhallaManeuverKind(m.Type)
			meters := m.Distance * 1000
			step := RouteStep{
				Number:      len(result.Steps) + 1,
				Description: abbreviateInstruction(m.Instruction),
				Distance:    convertDistance(meters, req.Units),
				Meters:      meters,
				Kind:        kind,
				Modifier:    modifier,
				Lat:         at.Lat(),
				Lng:         at.Lon(),
			}
			step.Icon = stepIcon(step)
			result.Steps = append(result.Steps, step)
		}
		line = append(line, shape...)
	}
	result.Path = newPath(line)

	return result, nil
}
