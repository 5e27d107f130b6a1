package environment

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Per-metric seed offsets keep the perturbations of one location uncorrelated.
const (
	offsetSoil = iota
	offsetTemperature
	offsetPrecipitation
	offsetHumidity
	offsetVegetation
)

// seedFor keys the perturbation on location, UTC calendar day and metric.
func seedFor(lat, lng float64, at time.Time, offset int) float64 {
	return math.Floor(lat*100) + math.Floor(lng*100) + float64(at.UTC().YearDay()) + float64(offset)
}

// unitRandom maps a seed onto [0,1) deterministically.
func unitRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
