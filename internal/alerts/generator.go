package alerts

import (
	"time"

	"agrisense/internal/models"
)

// Weather evaluates the temperature, precipitation and soil moisture chains independently.
// Within a chain only the first (most severe) matching band fires.
func Weather(s models.Snapshot, now time.Time) []models.WeatherAlert {
	var out []models.WeatherAlert
	add := func(kind models.WeatherAlertKind, sev models.Severity, msg, action string, valid time.Duration) {
		out = append(out, models.WeatherAlert{
			Kind:       kind,
			Severity:   sev,
			Message:    msg,
			Action:     action,
			ValidUntil: now.Add(valid),
		})
	}

	switch {
	case s.Temperature < 0:
		add(models.WeatherTemperature, models.SeverityExtreme,
			"Extreme cold warning: Temperature below freezing",
			"Protect sensitive crops with frost covers", 24*time.Hour)
	case s.Temperature > 40:
		add(models.WeatherTemperature, models.SeverityExtreme,
			"Extreme heat warning: Temperature above 40°C",
			"Increase irrigation frequency and provide shade", 24*time.Hour)
	case s.Temperature > 35:
		add(models.WeatherTemperature, models.SeverityHigh,
			"High temperature alert: Temperature above 35°C",
			"Monitor soil moisture and consider additional irrigation", 12*time.Hour)
	}

	switch {
	case s.Precipitation > 50:
		add(models.WeatherPrecipitation, models.SeverityHigh,
			"Heavy rainfall expected: Over 50mm precipitation",
			"Check drainage systems and avoid field work", 6*time.Hour)
	case s.Precipitation < 5 && s.SoilMoisture < 30:
		add(models.WeatherPrecipitation, models.SeverityModerate,
			"Drought conditions: Low precipitation and soil moisture",
			"Schedule irrigation and monitor crop stress", 24*time.Hour)
	}

	switch {
	case s.SoilMoisture < 20:
		add(models.WeatherHumidity, models.SeverityHigh,
			"Critical soil moisture: Below 20%",
			"Immediate irrigation required", 2*time.Hour)
	case s.SoilMoisture > 90:
		add(models.WeatherHumidity, models.SeverityModerate,
			"Excessive soil moisture: Above 90%",
			"Check drainage and avoid overwatering", 6*time.Hour)
	}

	return out
}

// Advisory raises an urgent alert for every advisory in alert status and an important one
// for every advisory in caution. Good advisories raise nothing.
func Advisory(advisories []models.Advisory, now time.Time) []models.AdvisoryAlert {
	var out []models.AdvisoryAlert
	for _, a := range advisories {
		switch a.Status {
		case models.StatusAlert:
			out = append(out, models.AdvisoryAlert{
				Kind:       KindFor(a.Category),
				Priority:   models.PriorityUrgent,
				Message:    a.Message,
				Action:     actionOr(a.Action, "Take immediate action"),
				ValidUntil: now.Add(24 * time.Hour),
			})
		case models.StatusCaution:
			out = append(out, models.AdvisoryAlert{
				Kind:       KindFor(a.Category),
				Priority:   models.PriorityImportant,
				Message:    a.Message,
				Action:     actionOr(a.Action, "Monitor and plan action"),
				ValidUntil: now.Add(48 * time.Hour),
			})
		}
	}
	return out
}

// KindFor maps an advisory category to its alert kind; irrigation is the fallback.
func KindFor(c models.AdvisoryCategory) models.AdvisoryAlertKind {
	switch c {
	case models.CategoryFertilizer:
		return models.AdvisoryFertilization
	case models.CategoryPest:
		return models.AdvisoryPestControl
	default:
		return models.AdvisoryIrrigation
	}
}

func actionOr(action, fallback string) string {
	if action == "" {
		return fallback
	}
	return action
}
