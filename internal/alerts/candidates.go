package alerts

import (
	"fmt"
	"strings"
	"time"

	"agrisense/internal/models"
)

// WeatherCandidate turns a weather alert into a notification ready to send.
func WeatherCandidate(a models.WeatherAlert) models.Candidate {
	priority := models.NotificationLow
	switch a.Severity {
	case models.SeverityExtreme:
		priority = models.NotificationHigh
	case models.SeverityHigh:
		priority = models.NotificationMedium
	}
	return models.Candidate{
		Title:    "Weather Alert: " + strings.ToUpper(string(a.Kind)),
		Body:     a.Message,
		Type:     models.TypeWeather,
		Priority: priority,
		Tag:      "weather-" + string(a.Kind),
		Data: map[string]any{
			"kind":        string(a.Kind),
			"severity":    string(a.Severity),
			"action":      a.Action,
			"valid_until": a.ValidUntil.UTC().Format(time.RFC3339),
		},
	}
}

// AdvisoryCandidate turns an advisory alert into a notification ready to send.
func AdvisoryCandidate(a models.AdvisoryAlert) models.Candidate {
	priority := models.NotificationMedium
	if a.Priority == models.PriorityUrgent {
		priority = models.NotificationHigh
	}
	return models.Candidate{
		Title:    "Advisory Alert: " + strings.ToUpper(strings.ReplaceAll(string(a.Kind), "_", " ")),
		Body:     a.Message,
		Type:     models.TypeAdvisory,
		Priority: priority,
		Tag:      "advisory-" + string(a.Kind),
		Data: map[string]any{
			"kind":        string(a.Kind),
			"priority":    string(a.Priority),
			"action":      a.Action,
			"valid_until": a.ValidUntil.UTC().Format(time.RFC3339),
		},
	}
}

// Summaries builds the daily weather summary and, when any advisory is in alert,
// the advisory summary.
func Summaries(s models.Snapshot, advisories []models.Advisory) []models.Candidate {
	out := []models.Candidate{{
		Title: "Daily Weather Summary",
		Body: fmt.Sprintf("Temperature: %g°C, Precipitation: %gmm, Soil Moisture: %g%%",
			s.Temperature, s.Precipitation, s.SoilMoisture),
		Type:     models.TypeGeneral,
		Priority: models.NotificationLow,
		Tag:      "daily-summary",
	}}

	urgent := 0
	for _, a := range advisories {
		if a.Status == models.StatusAlert {
			urgent++
		}
	}
	if urgent > 0 {
		out = append(out, models.Candidate{
			Title:    "Weekly Advisory Summary",
			Body:     fmt.Sprintf("%d urgent advisories require attention", urgent),
			Type:     models.TypeAdvisory,
			Priority: models.NotificationMedium,
			Tag:      "weekly-summary",
		})
	}
	return out
}
