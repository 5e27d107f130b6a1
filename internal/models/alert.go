package models

import "time"

type WeatherAlertKind string

const (
	WeatherTemperature   WeatherAlertKind = "temperature"
	WeatherPrecipitation WeatherAlertKind = "precipitation"
	WeatherHumidity      WeatherAlertKind = "humidity"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityExtreme  Severity = "extreme"
)

// WeatherAlert is a time-bounded warning derived from snapshot thresholds.
type WeatherAlert struct {
	Kind       WeatherAlertKind `json:"kind"`
	Severity   Severity         `json:"severity"`
	Message    string           `json:"message"`
	Action     string           `json:"action"`
	ValidUntil time.Time        `json:"valid_until"`
}

type AdvisoryAlertKind string

const (
	AdvisoryIrrigation    AdvisoryAlertKind = "irrigation"
	AdvisoryFertilization AdvisoryAlertKind = "fertilization"
	AdvisoryPestControl   AdvisoryAlertKind = "pest_control"
	AdvisoryHarvestTiming AdvisoryAlertKind = "harvest_timing"
)

type Priority string

const (
	PriorityUrgent    Priority = "urgent"
	PriorityImportant Priority = "important"
	PriorityScheduled Priority = "scheduled"
)

// AdvisoryAlert is a time-bounded alert raised from a non-good advisory.
type AdvisoryAlert struct {
	Kind       AdvisoryAlertKind `json:"kind"`
	Priority   Priority          `json:"priority"`
	Message    string            `json:"message"`
	Action     string            `json:"action"`
	ValidUntil time.Time         `json:"valid_until"`
}
