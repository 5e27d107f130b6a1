package advisory

import (
	"fmt"
	"strconv"

	"agrisense/internal/models"
)

// Thresholds for the conditional advisories.
const (
	SoilAlertBelow   = 30.0
	SoilCautionBelow = 50.0
	HeatAlertAbove   = 30.0
)

// Derive classifies a snapshot into one advisory per category: irrigation, weather, fertilizer.
func Derive(s models.Snapshot) []models.Advisory {
	return []models.Advisory{
		irrigation(s.SoilMoisture),
		weather(s.Temperature),
		fertilizer(),
	}
}

func irrigation(soil float64) models.Advisory {
	if soil < SoilCautionBelow {
		status := models.StatusCaution
		if soil < SoilAlertBelow {
			status = models.StatusAlert
		}
		return models.Advisory{
			ID:       "1",
			Category: models.CategoryIrrigation,
			Status:   status,
			Title:    "Irrigation Needed",
			Message:  fmt.Sprintf("Soil moisture is %s%%. Consider irrigating today.", formatNumber(soil)),
			Icon:     "💧",
			Action:   "Irrigate 2-3 inches",
		}
	}
	return models.Advisory{
		ID:       "1",
		Category: models.CategoryIrrigation,
		Status:   models.StatusGood,
		Title:    "Soil Moisture Good",
		Message:  fmt.Sprintf("Soil moisture is optimal at %s%%.", formatNumber(soil)),
		Icon:     "✓",
	}
}

func weather(temp float64) models.Advisory {
	if temp > HeatAlertAbove {
		return models.Advisory{
			ID:       "2",
			Category: models.CategoryWeather,
			Status:   models.StatusAlert,
			Title:    "High Temperature Alert",
			Message:  fmt.Sprintf("Temperature is %s°C. Protect sensitive crops.", formatNumber(temp)),
			Icon:     "🌡️",
			Action:   "Provide shade",
		}
	}
	return models.Advisory{
		ID:       "2",
		Category: models.CategoryWeather,
		Status:   models.StatusGood,
		Title:    "Temperature Optimal",
		Message:  fmt.Sprintf("Temperature is ideal at %s°C.", formatNumber(temp)),
		Icon:     "☀️",
	}
}

// fertilizer is a fixed-cadence reminder and does not depend on the snapshot.
func fertilizer() models.Advisory {
	return models.Advisory{
		ID:       "3",
		Category: models.CategoryFertilizer,
		Status:   models.StatusCaution,
		Title:    "Fertilizer Check",
		Message:  "Consider nitrogen-based fertilizer in 2 weeks.",
		Icon:     "🌱",
		Action:   "Apply N-P-K 20-10-10",
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
