package environment

import "time"

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonAt derives the meteorological season for a month and hemisphere.
// Southern latitudes (lat < 0) have the seasons swapped.
func SeasonAt(month time.Month, lat float64) Season {
	m := int(month) - 1
	if lat >= 0 {
		switch {
		case m >= 2 && m <= 4:
			return Spring
		case m >= 5 && m <= 7:
			return Summer
		case m >= 8 && m <= 10:
			return Autumn
		}
		return Winter
	}
	switch {
	case m >= 2 && m <= 4:
		return Autumn
	case m >= 5 && m <= 7:
		return Winter
	case m >= 8 && m <= 10:
		return Spring
	}
	return Summer
}

var (
	soilSeasonAdjust = map[Season]float64{Spring: 15, Summer: -10, Autumn: 5, Winter: 20}
	tempSeasonAdjust = map[Season]float64{Spring: 5, Summer: 15, Autumn: 0, Winter: -15}
	ndviSeasonAdjust = map[Season]float64{Spring: 0.4, Summer: 0.6, Autumn: 0.2, Winter: 0.1}
)
