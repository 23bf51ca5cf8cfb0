package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// withGeoServer points geoAPIURL at an httptest server for the test's duration.
func withGeoServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(h)
	origURL := geoAPIURL
	geoAPIURL = server.URL
	t.Cleanup(func() {
		geoAPIURL = origURL
		server.Close()
	})
}

func TestDetectLocation_Success(t *testing.T) {
	withGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ipAPIResponse{
			Status:   "success",
			Lat:      41.0082,
			Lon:      28.9784,
			City:     "Istanbul",
			Country:  "Turkey",
			Timezone: "Europe/Istanbul",
		})
	})

	loc, err := DetectLocation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Latitude != 41.0082 || loc.Longitude != 28.9784 {
		t.Errorf("coordinates = %v,%v", loc.Latitude, loc.Longitude)
	}
	if loc.City != "Istanbul" {
		t.Errorf("City = %q, want %q", loc.City, "Istanbul")
	}
	if loc.Timezone != "Europe/Istanbul" {
		t.Errorf("Timezone = %q, want %q", loc.Timezone, "Europe/Istanbul")
	}
	if c := loc.Coordinate(); c.Lat != 41.0082 || c.Lon != 28.9784 {
		t.Errorf("Coordinate() = %+v", c)
	}
}

func TestDetectLocation_APIFailureStatus(t *testing.T) {
	withGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ipAPIResponse{Status: "fail", Message: "reserved range"})
	})

	_, err := DetectLocation(context.Background())
	if err == nil {
		t.Fatal("expected error for failed status, got nil")
	}
	if !strings.Contains(err.Error(), "reserved range") {
		t.Errorf("error should contain message, got: %v", err)
	}
}

func TestDetectLocation_HTTPError(t *testing.T) {
	withGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := DetectLocation(context.Background())
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error mentioning 500, got: %v", err)
	}
}

func TestDetectLocation_InvalidJSON(t *testing.T) {
	withGeoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := DetectLocation(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("expected decode error, got: %v", err)
	}
}

func TestDetectLocation_ConnectionRefused(t *testing.T) {
	origURL := geoAPIURL
	geoAPIURL = "http://127.0.0.1:1" // nothing listening
	defer func() { geoAPIURL = origURL }()

	if _, err := DetectLocation(context.Background()); err == nil {
		t.Fatal("expected error for connection refused, got nil")
	}
}
