package qibla

import (
	"math"
	"testing"
)

func TestBearing_KnownCities(t *testing.T) {
	tests := []struct {
		name      string
		lat, lon  float64
		want      float64
		tolerance float64
	}{
		{"Istanbul", 41.0, 28.97, 151.6, 1.0},
		{"London", 51.5074, -0.1278, 118.99, 1.0},
		{"Jakarta", -6.2088, 106.8456, 295.1, 1.0},
		{"New York", 40.7128, -74.0060, 58.5, 1.0},
		{"due north of Kaaba", 40.0, KaabaLon, 180.0, 0.001},
		{"due south of Kaaba", 0.0, KaabaLon, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.lat, tt.lon)
			if got < 0 || got >= 360 {
				t.Fatalf("Bearing(%v, %v) = %v, outside [0, 360)", tt.lat, tt.lon, got)
			}
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Bearing(%v, %v) = %.2f, want %.2f ± %.3f", tt.lat, tt.lon, got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestBearing_RangeOverGrid(t *testing.T) {
	for lat := -89.0; lat <= 89.0; lat += 7.3 {
		for lon := -180.0; lon <= 180.0; lon += 11.7 {
			b := Bearing(lat, lon)
			if math.IsNaN(b) || b < 0 || b >= 360 {
				t.Fatalf("Bearing(%v, %v) = %v, outside [0, 360)", lat, lon, b)
			}
		}
	}
}

func TestBearing_AtKaabaIsFinite(t *testing.T) {
	// Degenerate input: any value is acceptable as long as it is in range.
	b := Bearing(KaabaLat, KaabaLon)
	if math.IsNaN(b) || b < 0 || b >= 360 {
		t.Errorf("Bearing at Kaaba = %v, outside [0, 360)", b)
	}
}

func TestCompassPoint(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{11.2, "N"},
		{11.3, "NNE"},
		{151.6, "SSE"},
		{180, "S"},
		{348.8, "N"},
		{-90, "W"},
		{720, "N"},
	}

	for _, tt := range tests {
		if got := CompassPoint(tt.deg); got != tt.want {
			t.Errorf("CompassPoint(%v) = %q, want %q", tt.deg, got, tt.want)
		}
	}
}
