package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Placeholder labels shown when a place name cannot be determined.
const (
	LabelDetected = "Konum Algılandı"
	LabelUnknown  = "Bilinmeyen Konum"
)

var reverseURL = "https://nominatim.openstreetmap.org/reverse"

type nominatimAddress struct {
	City     string `json:"city"`
	Town     string `json:"town"`
	Province string `json:"province"`
	District string `json:"district"`
	Suburb   string `json:"suburb"`
	County   string `json:"county"`
}

// PlaceName returns "Province / District" for c using OpenStreetMap
// Nominatim. When only one part is known it is returned alone, and
// LabelUnknown when neither is. Transport failures return LabelDetected
// together with the error so callers can still show something.
func PlaceName(ctx context.Context, c Coordinate) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 6, 64))
	q.Set("zoom", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reverseURL+"?"+q.Encode(), nil)
	if err != nil {
		return LabelDetected, fmt.Errorf("build reverse geocoding request: %w", err)
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "uyan/1 (prayer times)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return LabelDetected, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LabelDetected, fmt.Errorf("reverse geocoding returned status %d", resp.StatusCode)
	}

	var body struct {
		Address nominatimAddress `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return LabelDetected, fmt.Errorf("failed to decode reverse geocoding response: %w", err)
	}

	return body.Address.label(), nil
}

func (a nominatimAddress) label() string {
	province := firstNonEmpty(a.Province, a.City)
	district := firstNonEmpty(a.District, a.Town, a.County, a.Suburb)

	switch {
	case province != "" && district != "":
		return province + " / " + district
	case province != "":
		return province
	case district != "":
		return district
	default:
		return LabelUnknown
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
