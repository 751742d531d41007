package position

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/nwah/hudnav-server/geo"
)

// LoadGPX reads every track point of a GPX document as a fix. Speed and
// heading are derived from consecutive points when timestamps are present.
func LoadGPX(r io.Reader) ([]Fix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading gpx: %w", err)
	}
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing gpx: %w", err)
	}

	var fixes []Fix
	var prev *gpx.GPXPoint
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for i := range segment.Points {
				pt := &segment.Points[i]
				p := geo.Point{Lat: pt.Latitude, Lon: pt.Longitude}
				fix := Fix{Coords: &p, Timestamp: pt.Timestamp}

				if prev != nil {
					from := geo.Point{Lat: prev.Latitude, Lon: prev.Longitude}
					if from != p {
						heading := geo.Bearing(from, p)
						fix.Heading = &heading
					}
					if dt := pt.Timestamp.Sub(prev.Timestamp).Seconds(); dt > 0 {
						fix = fix.WithSpeed(geo.Distance(from, p) / dt)
					}
				}
				fixes = append(fixes, fix)
				prev = pt
			}
		}
	}

	if len(fixes) == 0 {
		return nil, fmt.Errorf("gpx contains no track points")
	}
	return fixes, nil
}

// Replay is a Source that plays back recorded fixes at a fixed interval
type Replay struct {
	fixes    []Fix
	interval time.Duration
}

// NewReplay creates a replay of fixes, one every interval
func NewReplay(fixes []Fix, interval time.Duration) *Replay {
	return &Replay{fixes: fixes, interval: interval}
}

// Run emits every fix to onFix and returns when done or ctx is cancelled
func (r *Replay) Run(ctx context.Context, onFix func(Fix)) error {
	var ticker *time.Ticker
	if r.interval > 0 {
		ticker = time.NewTicker(r.interval)
		defer ticker.Stop()
	}

	for i, fix := range r.fixes {
		if i > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		onFix(fix)
	}
	log.Printf("Debug: Replay finished after %d fixes", len(r.fixes))
	return nil
}

// Subscribe starts the replay on its own goroutine
func (r *Replay) Subscribe(onFix func(Fix), onError func(error)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		err := r.Run(ctx, onFix)
		if err != nil && ctx.Err() == nil && onError != nil {
			onError(err)
		}
	}()
	return cancel
}
