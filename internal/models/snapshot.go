package models

import "time"

// Location is a latitude/longitude pair with an optional display name.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// Valid reports whether the coordinates are inside the geographic ranges.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// SnapshotSource tells whether a snapshot came from a live fetch or synthesis.
type SnapshotSource string

const (
	SourceSynthetic SnapshotSource = "synthetic"
	SourceLive      SnapshotSource = "live"
)

// Snapshot is one environmental reading for a location. It is never mutated after creation.
type Snapshot struct {
	Location      Location       `json:"location"`
	SoilMoisture  float64        `json:"soil_moisture"`
	Temperature   float64        `json:"temperature"`
	Precipitation float64        `json:"precipitation"`
	Humidity      float64        `json:"humidity"`
	Source        SnapshotSource `json:"source"`
	CapturedAt    time.Time      `json:"captured_at"`
}

// Vegetation holds the NDVI/EVI indices for a location.
type Vegetation struct {
	NDVI       float64   `json:"ndvi"`
	EVI        float64   `json:"evi"`
	CapturedAt time.Time `json:"captured_at"`
}

// Report is the outcome of a single pipeline refresh.
type Report struct {
	Snapshot       Snapshot        `json:"snapshot"`
	Vegetation     Vegetation      `json:"vegetation"`
	Advisories     []Advisory      `json:"advisories"`
	WeatherAlerts  []WeatherAlert  `json:"weather_alerts"`
	AdvisoryAlerts []AdvisoryAlert `json:"advisory_alerts"`
}
