package geo

import (
	"fmt"
	"math"
)

const (
	feetPerMeter = 3.28084
	feetPerMile  = 5280

	// below these the distance is shown in meters/feet
	metricCutoff   = 1000.0
	imperialCutoff = 528.0 // 0.1 mi
)

// FormatDistance renders meters for display, in miles/feet when imperial is set
func FormatDistance(meters float64, imperial bool) string {
	if imperial {
		feet := meters * feetPerMeter
		if feet < imperialCutoff {
			return fmt.Sprintf("%.0f ft", roundTo10(feet))
		}
		return fmt.Sprintf("%.1f mi", feet/feetPerMile)
	}
	if meters < metricCutoff {
		return fmt.Sprintf("%.0f m", roundTo10(meters))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func roundTo10(v float64) float64 {
	return math.Round(v/10) * 10
}
