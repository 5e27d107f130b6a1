package environment

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrisense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLive struct {
	fetchFn func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error)
	calls   int
}

func (f *fakeLive) Fetch(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
	f.calls++
	return f.fetchFn(ctx, loc, at)
}

func ptr(v float64) *float64 { return &v }

var iowa = models.Location{Latitude: 41.878, Longitude: -93.0977}

func TestSynthesize_SameDayIsDeterministic(t *testing.T) {
	s := New(nil)
	morning := time.Date(2024, time.June, 12, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.June, 12, 21, 30, 0, 0, time.UTC)

	first := s.Synthesize(iowa, morning)
	second := s.Synthesize(iowa, evening)

	assert.Equal(t, first.SoilMoisture, second.SoilMoisture)
	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, first.Precipitation, second.Precipitation)
	assert.Equal(t, first.Humidity, second.Humidity)
	assert.Equal(t, models.SourceSynthetic, first.Source)
}

func TestSnapshot_RepeatedFetchYieldsSameTemperature(t *testing.T) {
	day := time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC)
	clock := day.Add(9 * time.Hour)
	s := New(nil, WithClock(func() time.Time { return clock }))

	first := s.Snapshot(context.Background(), iowa, time.Time{})
	clock = day.Add(15 * time.Hour)
	second := s.Snapshot(context.Background(), iowa, time.Time{})

	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, round(first.Temperature, 1), first.Temperature)
}

func TestSynthesize_VariesAcrossDays(t *testing.T) {
	s := New(nil)
	start := time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC)

	temps := map[float64]struct{}{}
	for d := 0; d < 30; d++ {
		temps[s.Synthesize(iowa, start.AddDate(0, 0, d)).Temperature] = struct{}{}
	}
	assert.Greater(t, len(temps), 1)
}

func TestSynthesize_ValuesStayInRange(t *testing.T) {
	s := New(nil)
	start := time.Date(2023, time.January, 1, 12, 0, 0, 0, time.UTC)

	for lat := -90.0; lat <= 90; lat += 7.5 {
		for lng := -180.0; lng <= 180; lng += 30 {
			for d := 0; d < 365; d += 17 {
				at := start.AddDate(0, 0, d)
				loc := models.Location{Latitude: lat, Longitude: lng}
				snap := s.Synthesize(loc, at)
				require.GreaterOrEqual(t, snap.SoilMoisture, 0.0)
				require.LessOrEqual(t, snap.SoilMoisture, 100.0)
				require.GreaterOrEqual(t, snap.Precipitation, 0.0)
				require.Equal(t, round(snap.SoilMoisture, 0), snap.SoilMoisture)

				veg := s.Vegetation(loc, at)
				require.GreaterOrEqual(t, veg.NDVI, 0.0)
				require.LessOrEqual(t, veg.NDVI, 1.0)
				require.InDelta(t, veg.NDVI*0.75, veg.EVI, 0.001)
			}
		}
	}
}

func TestSoilMoisture_LatitudeAndSeasonBaselines(t *testing.T) {
	// Northern summer at the equator band: 50 + 10 - 10, within the +/-5 perturbation.
	summer := time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC)
	v := SoilMoisture(10, 20, summer)
	assert.InDelta(t, 50, v, 5)

	// Polar winter: 50 - 15 + 20.
	winter := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	v = SoilMoisture(70, 20, winter)
	assert.InDelta(t, 55, v, 5)
}

func TestTemperature_LatitudeEffect(t *testing.T) {
	autumn := time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
	// Equator in autumn: 20 + 20 + 0.
	assert.InDelta(t, 40, Temperature(0, 10, autumn), 2.6)
	// Pole in autumn: 20 - 20 + 0.
	assert.InDelta(t, 0, Temperature(90, 10, autumn), 2.6)
}

func TestPrecipitation_SpringBonus(t *testing.T) {
	spring := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	summer := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	assert.GreaterOrEqual(t, Precipitation(45, 10, spring), 30.0)
	assert.LessOrEqual(t, Precipitation(45, 10, summer), 30.0)
}

func TestSeasonAt(t *testing.T) {
	tests := []struct {
		month time.Month
		lat   float64
		want  Season
	}{
		{time.March, 10, Spring},
		{time.May, 10, Spring},
		{time.June, 10, Summer},
		{time.September, 10, Autumn},
		{time.December, 10, Winter},
		{time.January, 0, Winter},
		{time.March, -10, Autumn},
		{time.July, -10, Winter},
		{time.October, -10, Spring},
		{time.February, -10, Summer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SeasonAt(tt.month, tt.lat), "month=%s lat=%v", tt.month, tt.lat)
	}
}

func TestUnitRandom_InUnitInterval(t *testing.T) {
	for seed := -5000.0; seed < 5000; seed += 13 {
		v := unitRandom(seed)
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestSnapshot_UsesLiveReading(t *testing.T) {
	at := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	live := &fakeLive{fetchFn: func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
		return LiveReading{
			SoilMoisture:  ptr(120),
			Temperature:   ptr(18.26),
			Precipitation: ptr(-3),
			Humidity:      ptr(64.4),
		}, nil
	}}
	s := New(nil, WithLiveSource(live, time.Second))

	snap := s.Snapshot(context.Background(), iowa, at)

	assert.Equal(t, 1, live.calls)
	assert.Equal(t, models.SourceLive, snap.Source)
	assert.Equal(t, 100.0, snap.SoilMoisture)
	assert.Equal(t, 18.3, snap.Temperature)
	assert.Equal(t, 0.0, snap.Precipitation)
	assert.Equal(t, 64.0, snap.Humidity)
}

func TestSnapshot_PartialLiveReadingKeepsSynthesizedFields(t *testing.T) {
	at := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	live := &fakeLive{fetchFn: func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
		return LiveReading{Temperature: ptr(12)}, nil
	}}
	s := New(nil, WithLiveSource(live, time.Second))

	snap := s.Snapshot(context.Background(), iowa, at)
	base := s.Synthesize(iowa, at)

	assert.Equal(t, 12.0, snap.Temperature)
	assert.Equal(t, base.SoilMoisture, snap.SoilMoisture)
	assert.Equal(t, base.Precipitation, snap.Precipitation)
}

func TestSnapshot_FallsBackOnLiveFailure(t *testing.T) {
	at := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	sources := map[string]*fakeLive{
		"error": {fetchFn: func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
			return LiveReading{}, errors.New("network down")
		}},
		"panic": {fetchFn: func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
			panic("boom")
		}},
		"hang": {fetchFn: func(ctx context.Context, loc models.Location, at time.Time) (LiveReading, error) {
			<-release
			return LiveReading{Temperature: ptr(99)}, nil
		}},
	}

	for name, live := range sources {
		t.Run(name, func(t *testing.T) {
			s := New(nil, WithLiveSource(live, 20*time.Millisecond))
			var snap models.Snapshot
			require.NotPanics(t, func() {
				snap = s.Snapshot(context.Background(), iowa, at)
			})
			assert.Equal(t, s.Synthesize(iowa, at), snap)
		})
	}
}
