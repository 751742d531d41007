// Package hud turns tracker state and the latest fix into what the
// heads-up display renders.
package hud

import (
	"fmt"
	"math"
	"strings"

	"github.com/nwah/hudnav-server/geo"
	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/position"
)

const (
	msToKMH = 3.6
	msToMPH = 2.23694

	// DefaultAnimationFactor divided by the speed gives the scenery loop duration
	DefaultAnimationFactor = 100.0
	stationaryAnimation    = 20.0
	minAnimation           = 1.0

	placeholder = "--"
)

// Icon names a directional glyph for a maneuver
type Icon string

const (
	IconStraight Icon = "straight"
	IconLeft     Icon = "left"
	IconRight    Icon = "right"
	IconUturn    Icon = "uturn"
	IconArrive   Icon = "arrive"
)

// IconFor picks the glyph for a step from its maneuver classification
func IconFor(step maneuver.Step) Icon {
	modifier := strings.ToLower(step.Modifier)
	switch {
	case strings.EqualFold(step.Kind, "arrive"):
		return IconArrive
	case strings.Contains(modifier, "uturn"):
		return IconUturn
	case strings.Contains(modifier, "right"):
		return IconRight
	case strings.Contains(modifier, "left"):
		return IconLeft
	default:
		return IconStraight
	}
}

// SpeedDisplay formats a speed in m/s as a two digit km/h or mph reading
func SpeedDisplay(speed *float64, imperial bool) string {
	if speed == nil {
		return placeholder
	}
	factor := msToKMH
	if imperial {
		factor = msToMPH
	}
	return fmt.Sprintf("%02d", int(math.Round(*speed*factor)))
}

// SpeedUnit is the label shown next to SpeedDisplay
func SpeedUnit(imperial bool) string {
	if imperial {
		return "mph"
	}
	return "km/h"
}

// AnimationSeconds is the loop duration of the scrolling scenery: faster
// driving gives a faster loop.
func AnimationSeconds(speed *float64, factor float64) float64 {
	if speed == nil || *speed <= 0 {
		return stationaryAnimation
	}
	if factor <= 0 {
		factor = DefaultAnimationFactor
	}
	return math.Max(minAnimation, factor / *speed)
}

// Frame is everything the display needs for one refresh
type Frame struct {
	State            maneuver.State `json:"state"`
	Speed            string         `json:"speed"`
	Unit             string         `json:"unit"`
	Instruction      string         `json:"instruction,omitempty"`
	Icon             Icon           `json:"icon,omitempty"`
	DistanceToTurn   string         `json:"distanceToTurn"`
	DistanceMeters   *float64       `json:"distanceMeters,omitempty"`
	StepIndex        int            `json:"stepIndex"`
	StepCount        int            `json:"stepCount"`
	AnimationSeconds float64        `json:"animationSeconds"`
}

// Options control unit and animation preferences for BuildFrame
type Options struct {
	Imperial        bool
	AnimationFactor float64
}

// BuildFrame renders a tracker snapshot against the latest fix
func BuildFrame(snap maneuver.Snapshot, fix *position.Fix, opts Options) Frame {
	frame := Frame{
		State:            snap.State,
		Speed:            placeholder,
		Unit:             SpeedUnit(opts.Imperial),
		DistanceToTurn:   placeholder,
		StepIndex:        snap.Cursor,
		StepCount:        snap.Total,
		AnimationSeconds: stationaryAnimation,
	}
	if fix != nil {
		frame.Speed = SpeedDisplay(fix.Speed, opts.Imperial)
		frame.AnimationSeconds = AnimationSeconds(fix.Speed, opts.AnimationFactor)
	}

	if snap.Step == nil {
		return frame
	}
	frame.Instruction = snap.Step.Instruction
	frame.Icon = IconFor(*snap.Step)
	if fix != nil && fix.HasCoords() {
		d := geo.Distance(*fix.Coords, snap.Step.Location)
		frame.DistanceMeters = &d
		frame.DistanceToTurn = geo.FormatDistance(d, opts.Imperial)
	}
	return frame
}
