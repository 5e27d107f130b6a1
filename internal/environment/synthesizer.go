package environment

import (
	"context"
	"fmt"
	"math"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/metrics"
	"agrisense/internal/models"
)

// LiveReading holds values reported by a live source. Nil fields were not reported.
type LiveReading struct {
	SoilMoisture  *float64
	Temperature   *float64
	Precipitation *float64
	Humidity      *float64
}

// LiveSource fetches real environmental readings for a location.
type LiveSource interface {
	Fetch(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error)
}

// Synthesizer produces reproducible environmental snapshots, optionally preferring a live source.
type Synthesizer struct {
	live    LiveSource
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Synthesizer)

// WithLiveSource makes Snapshot try src first, bounded by timeout.
func WithLiveSource(src LiveSource, timeout time.Duration) Option {
	return func(s *Synthesizer) {
		s.live = src
		s.timeout = timeout
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synthesizer) {
		s.metrics = m
	}
}

func New(logger *logging.Logger, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Now returns the synthesizer's clock reading.
func (s *Synthesizer) Now() time.Time {
	return s.now()
}

// Snapshot returns the live reading for loc when available and the synthesized one otherwise.
// It never fails: every live-source error is logged and absorbed.
func (s *Synthesizer) Snapshot(ctx context.Context, loc models.Location, at time.Time) models.Snapshot {
	if at.IsZero() {
		at = s.now()
	}
	base := s.Synthesize(loc, at)
	if s.live == nil {
		s.metrics.IncSnapshot(string(models.SourceSynthetic))
		return base
	}

	reading, err := s.fetchLive(ctx, loc, at)
	if err != nil {
		s.logger.Warnf("Live environmental fetch failed for %.4f,%.4f, falling back to synthesis: %v",
			loc.Latitude, loc.Longitude, err)
		s.metrics.IncLiveFailure()
		s.metrics.IncSnapshot(string(models.SourceSynthetic))
		return base
	}

	snap := merge(base, reading)
	s.metrics.IncSnapshot(string(models.SourceLive))
	return snap
}

func (s *Synthesizer) fetchLive(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		reading LiveReading
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("live source panicked: %v", r)}
			}
		}()
		reading, err := s.live.Fetch(ctx, loc, at)
		done <- result{reading: reading, err: err}
	}()

	select {
	case <-ctx.Done():
		return LiveReading{}, fmt.Errorf("live fetch timed out: %w", ctx.Err())
	case res := <-done:
		return res.reading, res.err
	}
}

func merge(base models.Snapshot, r LiveReading) models.Snapshot {
	snap := base
	snap.Source = models.SourceLive
	if r.SoilMoisture != nil {
		snap.SoilMoisture = round(clamp(*r.SoilMoisture, 0, 100), 0)
	}
	if r.Temperature != nil {
		snap.Temperature = round(*r.Temperature, 1)
	}
	if r.Precipitation != nil {
		snap.Precipitation = math.Max(0, round(*r.Precipitation, 1))
	}
	if r.Humidity != nil {
		snap.Humidity = round(clamp(*r.Humidity, 0, 100), 0)
	}
	return snap
}

// Synthesize derives a snapshot from latitude, season and a per-day seeded perturbation.
// For a given location and UTC calendar day the result is always the same.
func (s *Synthesizer) Synthesize(loc models.Location, at time.Time) models.Snapshot {
	return models.Snapshot{
		Location:      loc,
		SoilMoisture:  SoilMoisture(loc.Latitude, loc.Longitude, at),
		Temperature:   Temperature(loc.Latitude, loc.Longitude, at),
		Precipitation: Precipitation(loc.Latitude, loc.Longitude, at),
		Humidity:      Humidity(loc.Latitude, loc.Longitude, at),
		Source:        models.SourceSynthetic,
		CapturedAt:    at,
	}
}

// Vegetation returns the NDVI/EVI indices for loc at the given time.
func (s *Synthesizer) Vegetation(loc models.Location, at time.Time) models.Vegetation {
	if at.IsZero() {
		at = s.now()
	}
	ndvi := NDVI(loc.Latitude, loc.Longitude, at)
	return models.Vegetation{
		NDVI:       round(ndvi, 3),
		EVI:        round(ndvi*0.75, 3),
		CapturedAt: at,
	}
}

// SoilMoisture is the volumetric soil water proxy in percent, in [0,100].
func SoilMoisture(lat, lng float64, at time.Time) float64 {
	moisture := 50.0
	switch abs := math.Abs(lat); {
	case abs < 23.5:
		moisture += 10
	case abs > 60:
		moisture -= 15
	}
	moisture += soilSeasonAdjust[SeasonAt(at.UTC().Month(), lat)]
	moisture += (unitRandom(seedFor(lat, lng, at, offsetSoil)) - 0.5) * 10
	return round(clamp(moisture, 0, 100), 0)
}

// Temperature is the air temperature in degrees Celsius, one decimal.
func Temperature(lat, lng float64, at time.Time) float64 {
	temp := 20.0
	temp += (90-math.Abs(lat))/90*40 - 20
	temp += tempSeasonAdjust[SeasonAt(at.UTC().Month(), lat)]
	temp += (unitRandom(seedFor(lat, lng, at, offsetTemperature)) - 0.5) * 5
	return round(temp, 1)
}

// Precipitation is the accumulated rainfall in millimetres, never negative.
func Precipitation(lat, lng float64, at time.Time) float64 {
	precip := 10.0
	if season := SeasonAt(at.UTC().Month(), lat); season == Spring || season == Autumn {
		precip += 20
	}
	precip += unitRandom(seedFor(lat, lng, at, offsetPrecipitation)) * 20
	return math.Max(0, round(precip, 1))
}

// Humidity is the relative humidity in percent.
func Humidity(lat, lng float64, at time.Time) float64 {
	return round(50+unitRandom(seedFor(lat, lng, at, offsetHumidity))*30, 0)
}

// NDVI is the unrounded vegetation index in [0,1].
func NDVI(lat, lng float64, at time.Time) float64 {
	ndvi := 0.3 + ndviSeasonAdjust[SeasonAt(at.UTC().Month(), lat)]
	if math.Abs(lat) < 30 {
		ndvi += 0.2
	}
	ndvi += (unitRandom(seedFor(lat, lng, at, offsetVegetation)) - 0.5) * 0.1
	return clamp(ndvi, 0, 1)
}
