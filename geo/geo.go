package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters used by Distance
const EarthRadius = 6371e3

// Point is a geographic position in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FromLonLat converts a [lon, lat] pair, the order mapping APIs return, into a Point
func FromLonLat(pair [2]float64) Point {
	return Point{Lat: pair[1], Lon: pair[0]}
}

// Valid checks that the point lies within the latitude/longitude ranges
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula on a spherical Earth.
func Distance(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bearing returns the initial bearing from a to b in degrees, 0-360 clockwise from north
func Bearing(a, b Point) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dLambda := toRadians(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Offset returns the point reached by travelling meters from p along bearing (degrees)
func Offset(p Point, bearing, meters float64) Point {
	delta := meters / EarthRadius
	theta := toRadians(bearing)
	phi1 := toRadians(p.Lat)
	lambda1 := toRadians(p.Lon)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))

	return Point{Lat: phi2 * 180 / math.Pi, Lon: math.Mod(lambda2*180/math.Pi+540, 360) - 180}
}
