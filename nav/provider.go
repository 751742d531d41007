package nav

import (
	"context"

	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/maneuver"
)

// Router exposes the configured routing backend as maneuver steps for
// navigation sessions.
type Router struct {
	Mode TransportMode
}

// Directions returns the maneuvers of the best route from one point to another
func (r Router) Directions(ctx context.Context, from, to geo.Point) ([]maneuver.Step, error) {
	result, err := route(ctx, RouteRequest{
		FromLat: from.Lat,
		FromLng: from.Lon,
		ToLat:   to.Lat,
		ToLng:   to.Lon,
		Mode:    r.Mode,
		Units:   UnitKilometers,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Steps) == 0 {
		return nil, ErrNoRoute
	}

	steps := make([]maneuver.Step, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = maneuver.Step{
			Location:       geo.Point{Lat: s.Lat, Lon: s.Lng},
			DistanceMeters: s.Meters,
			Instruction:    s.Description,
			Kind:           s.Kind,
			Modifier:       s.Modifier,
		}
	}
	return steps, nil
}
