// Package qibla computes the initial great-circle bearing toward the Kaaba.
package qibla

import "math"

// Kaaba coordinates in degrees.
const (
	KaabaLat = 21.422487
	KaabaLon = 39.826206
)

// Bearing returns the initial bearing in degrees, clockwise from true north,
// from the observer to the Kaaba. The result lies in [0, 360).
//
// An observer standing on the Kaaba has no defined direction; the value
// returned there is whatever atan2(0, 0) yields and must not be relied on.
func Bearing(lat, lon float64) float64 {
	phi1 := lat * math.Pi / 180
	phi2 := KaabaLat * math.Pi / 180
	dLambda := (KaabaLon - lon) * math.Pi / 180

	y := math.Sin(dLambda)
	x := math.Cos(phi1)*math.Tan(phi2) - math.Sin(phi1)*math.Cos(dLambda)
	theta := math.Atan2(y, x) * 180 / math.Pi

	b := math.Mod(theta+360, 360)
	if b >= 360 {
		b = 0
	}
	return b
}

var points = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassPoint maps a bearing to one of the sixteen compass points.
func CompassPoint(deg float64) string {
	deg = math.Mod(math.Mod(deg, 360)+360, 360)
	idx := int(math.Floor(deg/22.5+0.5)) % len(points)
	return points[idx]
}
