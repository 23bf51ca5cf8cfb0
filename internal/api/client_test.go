package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// istanbulDay returns a Diyanet day for Istanbul.
func istanbulDay() Response {
	return Response{
		Code:   200,
		Status: "OK",
		Data: Day{
			Timings: Timings{
				Imsak:   "06:01",
				Fajr:    "06:11",
				Sunrise: "07:38",
				Dhuhr:   "13:09",
				Asr:     "16:14 (+03)",
				Maghrib: "18:20",
				Isha:    "19:41",
			},
			Date: DateInfo{
				Readable: "02 Mar 2026",
				Hijri: HijriDate{
					Day:   "13",
					Month: HijriMonth{Number: 9, En: "Ramaḍān"},
					Year:  "1447",
				},
			},
			Meta: Meta{
				Latitude:  41.0,
				Longitude: 28.97,
				Timezone:  "Europe/Istanbul",
				Method:    MethodInfo{ID: MethodDiyanet, Name: "Diyanet İşleri Başkanlığı, Turkey"},
			},
		},
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c := NewClient()
	c.BaseURL = server.URL
	return c
}

func TestNewClient(t *testing.T) {
	c := NewClient()
	if c.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL, defaultBaseURL)
	}
}

// ---------------------------------------------------------------------------
// FetchDay
// ---------------------------------------------------------------------------

func TestFetchDay_Coordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/timings/02-03-2026" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("latitude") != "41.000000" {
			t.Errorf("latitude = %q", q.Get("latitude"))
		}
		if q.Get("longitude") != "28.970000" {
			t.Errorf("longitude = %q", q.Get("longitude"))
		}
		if q.Get("method") != "13" {
			t.Errorf("method = %q, want 13", q.Get("method"))
		}
		if q.Get("school") != "" {
			t.Errorf("school should not be set, got %q", q.Get("school"))
		}
		json.NewEncoder(w).Encode(istanbulDay())
	})

	got, err := c.FetchDay(context.Background(), Query{
		Date:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Lat:    41.0,
		Lon:    28.97,
		Method: MethodDiyanet,
		School: -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Timings.Maghrib != "18:20" {
		t.Errorf("Maghrib = %q, want %q", got.Timings.Maghrib, "18:20")
	}
	if !got.Date.Hijri.IsRamadan() {
		t.Error("expected Ramadan date")
	}
}

func TestFetchDay_City(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/timingsByCity/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("city") != "Istanbul" || q.Get("country") != "Turkey" {
			t.Errorf("city/country = %q/%q", q.Get("city"), q.Get("country"))
		}
		if q.Get("latitude") != "" {
			t.Error("coordinates should not be sent with a city query")
		}
		json.NewEncoder(w).Encode(istanbulDay())
	})

	_, err := c.FetchDay(context.Background(), Query{
		Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), City: "Istanbul", Country: "Turkey",
		Method: -1, School: -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchDay_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.FetchDay(context.Background(), Query{Date: time.Now(), Method: -1, School: -1})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", netErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should mention 503, got: %v", err)
	}
}

func TestFetchDay_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "api code 400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(Response{Code: 400, Status: "Unable to find city"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchDay(context.Background(), Query{Date: time.Now(), City: "Nowhere", Method: -1, School: -1})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestFetchDay_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.FetchDay(context.Background(), Query{Date: time.Now(), Method: -1, School: -1})
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("error should mention decode, got: %v", err)
	}
}

func TestFetchDay_ConnectionRefused(t *testing.T) {
	c := NewClient()
	c.BaseURL = "http://127.0.0.1:1" // nothing listening

	_, err := c.FetchDay(context.Background(), Query{Date: time.Now(), Method: -1, School: -1})
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", netErr.StatusCode)
	}
}

func TestFetchDay_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(istanbulDay())
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchDay(ctx, Query{Date: time.Now(), Method: -1, School: -1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
