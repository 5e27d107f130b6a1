package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"
)

const userAgent = "agrisense/1.0"

// Geocoder resolves names and coordinates against a Nominatim-compatible service.
type Geocoder struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

type GeocoderOption func(*Geocoder)

func WithHTTPClient(httpClient *http.Client) GeocoderOption {
	return func(g *Geocoder) {
		g.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) GeocoderOption {
	return func(g *Geocoder) {
		g.httpClient.Timeout = timeout
	}
}

func NewGeocoder(baseURL string, logger *logging.Logger, opts ...GeocoderOption) *Geocoder {
	if logger == nil {
		logger = logging.Discard()
	}
	g := &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FallbackName is the label used when no place name can be resolved.
func FallbackName(lat, lng float64) string {
	return fmt.Sprintf("Location (%.4f, %.4f)", lat, lng)
}

// Reverse returns a display name for the coordinates. It never fails.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("addressdetails", "1")

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := g.get(ctx, "/reverse", q, &payload); err != nil {
		g.logger.Warnf("Reverse geocoding %.4f,%.4f failed: %v", lat, lng, err)
		return FallbackName(lat, lng)
	}
	if payload.DisplayName == "" {
		return FallbackName(lat, lng)
	}
	return payload.DisplayName
}

// Search resolves a free-form address to its first match. It reports false when nothing matched.
func (g *Geocoder) Search(ctx context.Context, address string) (models.Location, bool) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", address)
	q.Set("limit", "1")

	var results []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := g.get(ctx, "/search", q, &results); err != nil {
		g.logger.Warnf("Geocoding %q failed: %v", address, err)
		return models.Location{}, false
	}
	if len(results) == 0 {
		return models.Location{}, false
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Location{}, false
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Location{}, false
	}
	loc := models.Location{Latitude: lat, Longitude: lng, Name: results[0].DisplayName}
	return loc, loc.Valid()
}

func (g *Geocoder) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
