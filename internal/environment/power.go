package environment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"agrisense/internal/models"
)

const (
	powerParameters = "T2M,PRECTOTCORR,RH2M,GWETTOP"
	powerWindowDays = 30
	powerLookback   = 60 * 24 * time.Hour
	powerFillValue  = -999.0
)

var errMalformedPayload = errors.New("malformed POWER payload")

// PowerClient reads daily point data from the NASA POWER API.
type PowerClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type PowerOption func(*PowerClient)

func WithTimeout(timeout time.Duration) PowerOption {
	return func(c *PowerClient) {
		c.httpClient.Timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) PowerOption {
	return func(c *PowerClient) {
		c.httpClient = httpClient
	}
}

func WithAPIKey(apiKey string) PowerOption {
	return func(c *PowerClient) {
		c.apiKey = apiKey
	}
}

func NewPowerClient(baseURL string, opts ...PowerOption) *PowerClient {
	c := &PowerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type powerResponse struct {
	Properties *struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// Fetch returns the recent-window aggregates for loc.
// Temperature and humidity are means, precipitation is a sum, soil moisture is GWETTOP in percent.
func (c *PowerClient) Fetch(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
	end := at.UTC()
	start := end.Add(-powerLookback)

	q := url.Values{}
	q.Set("parameters", powerParameters)
	q.Set("community", "AG")
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	q.Set("start", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))
	q.Set("format", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return LiveReading{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LiveReading{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return LiveReading{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return LiveReading{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Properties == nil || payload.Properties.Parameter == nil {
		return LiveReading{}, errMalformedPayload
	}

	params := payload.Properties.Parameter
	var reading LiveReading
	if vals := recent(params["T2M"]); len(vals) > 0 {
		v := mean(vals)
		reading.Temperature = &v
	}
	if vals := recent(params["PRECTOTCORR"]); len(vals) > 0 {
		v := sum(vals)
		reading.Precipitation = &v
	}
	if vals := recent(params["RH2M"]); len(vals) > 0 {
		v := mean(vals)
		reading.Humidity = &v
	}
	if vals := recent(params["GWETTOP"]); len(vals) > 0 {
		v := vals[len(vals)-1] * 100
		reading.SoilMoisture = &v
	}
	if reading == (LiveReading{}) {
		return LiveReading{}, fmt.Errorf("%w: no usable parameters", errMalformedPayload)
	}
	return reading, nil
}

// recent returns the last valid daily values in date order.
func recent(series map[string]float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	days := make([]string, 0, len(series))
	for day := range series {
		days = append(days, day)
	}
	sort.Strings(days)

	vals := make([]float64, 0, powerWindowDays)
	for _, day := range days {
		if v := series[day]; v > powerFillValue {
			vals = append(vals, v)
		}
	}
	if len(vals) > powerWindowDays {
		vals = vals[len(vals)-powerWindowDays:]
	}
	return vals
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func mean(vals []float64) float64 {
	return sum(vals) / float64(len(vals))
}
