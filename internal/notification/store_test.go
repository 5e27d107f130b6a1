package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"agrisense/internal/kv"
	"agrisense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	mu         sync.Mutex
	supported  bool
	permission models.Permission
	requestErr error
	displayErr error
	displayed  []string
}

func (f *fakePlatform) Supported() bool { return f.supported }

func (f *fakePlatform) Permission(context.Context) models.Permission { return f.permission }

func (f *fakePlatform) RequestPermission(context.Context) (models.Permission, error) {
	if f.requestErr != nil {
		return models.PermissionDefault, f.requestErr
	}
	f.permission = models.PermissionGranted
	return f.permission, nil
}

func (f *fakePlatform) Display(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayErr != nil {
		return f.displayErr
	}
	f.displayed = append(f.displayed, n.ID)
	return nil
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("quota exceeded") }

func (failingKV) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func candidate(title string, t models.NotificationType) models.Candidate {
	return models.Candidate{Title: title, Body: title + " body", Type: t, Priority: models.NotificationMedium}
}

func TestSend_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)

	a := s.Send(ctx, candidate("A", models.TypeWeather))
	b := s.Send(ctx, candidate("B", models.TypeAdvisory))

	list := s.List(ctx, "")
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, list[0].Read)
}

func TestData_CallersCannotMutateStoredRecords(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	c := candidate("Frost", models.TypeWeather)
	c.Data = map[string]any{"severity": "high"}
	sent := s.Send(ctx, c)

	c.Data["severity"] = "from candidate"
	sent.Data["severity"] = "from send"
	s.List(ctx, "")[0].Data["severity"] = "from list"
	s.Unread(ctx)[0].Data["severity"] = "from unread"

	list := s.List(ctx, "")
	require.Len(t, list, 1)
	assert.Equal(t, "high", list[0].Data["severity"])
}

func TestList_FiltersByTypeKeepingOrder(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	s.Send(ctx, candidate("w1", models.TypeWeather))
	s.Send(ctx, candidate("a1", models.TypeAdvisory))
	s.Send(ctx, candidate("w2", models.TypeWeather))

	weather := s.List(ctx, models.TypeWeather)
	require.Len(t, weather, 2)
	assert.Equal(t, "w2", weather[0].Title)
	assert.Equal(t, "w1", weather[1].Title)
	assert.Empty(t, s.List(ctx, models.TypeHarvest))
}

func TestClearOlderThan(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2024, time.June, 20, 12, 0, 0, 0, time.UTC)}
	s := New(kv.NewMemory(), nil, WithClock(c.now))

	c.t = c.t.Add(-8 * 24 * time.Hour)
	old := s.Send(ctx, candidate("old", models.TypeGeneral))
	c.t = c.t.Add(2 * 24 * time.Hour)
	recent := s.Send(ctx, candidate("recent", models.TypeGeneral))
	c.t = c.t.Add(6 * 24 * time.Hour)

	removed := s.ClearOlderThan(ctx, 7)
	assert.Equal(t, 1, removed)

	list := s.List(ctx, "")
	require.Len(t, list, 1)
	assert.Equal(t, recent.ID, list[0].ID)
	assert.NotEqual(t, old.ID, list[0].ID)

	// Zero means the default of seven days.
	assert.Equal(t, 0, s.ClearOlderThan(ctx, 0))
}

func TestMarkRead_IsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	n := s.Send(ctx, candidate("A", models.TypeWeather))
	s.Send(ctx, candidate("B", models.TypeWeather))

	s.MarkRead(ctx, n.ID)
	unread := s.Unread(ctx)
	require.Len(t, unread, 1)
	assert.Equal(t, "B", unread[0].Title)

	s.MarkAllRead(ctx)
	s.MarkRead(ctx, n.ID)
	assert.Empty(t, s.Unread(ctx))
	for _, item := range s.List(ctx, "") {
		assert.True(t, item.Read)
	}
}

func TestMarkRead_UnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	s.Send(ctx, candidate("A", models.TypeWeather))

	require.NotPanics(t, func() { s.MarkRead(ctx, "does-not-exist") })
	assert.Len(t, s.Unread(ctx), 1)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemory()
	s := New(backing, nil)
	s.Send(ctx, candidate("A", models.TypeWeather))
	s.ClearAll(ctx)

	assert.Empty(t, s.List(ctx, ""))
	raw, err := backing.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestMaxItemsDropsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil, WithMaxItems(2))
	s.Send(ctx, candidate("1", models.TypeGeneral))
	s.Send(ctx, candidate("2", models.TypeGeneral))
	s.Send(ctx, candidate("3", models.TypeGeneral))

	list := s.List(ctx, "")
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].Title)
	assert.Equal(t, "2", list[1].Title)
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemory()
	at := time.Date(2024, time.March, 3, 8, 30, 0, 0, time.UTC)

	first := New(backing, nil, WithClock(func() time.Time { return at }))
	sent := first.Send(ctx, models.Candidate{
		Title:    "Weather Alert: TEMPERATURE",
		Body:     "hot",
		Type:     models.TypeWeather,
		Priority: models.NotificationHigh,
		Tag:      "weather-temperature",
		Data:     map[string]any{"severity": "extreme"},
	})
	first.MarkRead(ctx, sent.ID)

	raw, err := backing.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"timestamp":"2024-03-03T08:30:00Z"`), string(raw))

	second := New(backing, nil)
	list := second.List(ctx, "")
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)
	assert.True(t, list[0].Timestamp.Equal(at))
	assert.True(t, list[0].Read)
	assert.Equal(t, "extreme", list[0].Data["severity"])
}

func TestStorageFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	s := New(failingKV{}, nil)

	require.NotPanics(t, func() {
		s.Send(ctx, candidate("A", models.TypeWeather))
		s.MarkAllRead(ctx)
		s.ClearOlderThan(ctx, 7)
	})
	assert.Len(t, s.List(ctx, ""), 1)
}

func TestCorruptStorageStartsEmpty(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemory()
	require.NoError(t, backing.Set(ctx, StorageKey, []byte("{not json")))

	s := New(backing, nil)
	assert.Empty(t, s.List(ctx, ""))
	s.Send(ctx, candidate("A", models.TypeWeather))
	assert.Len(t, s.List(ctx, ""), 1)
}

func TestSend_PresentsOnlyWithPermission(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		platform  *fakePlatform
		presented bool
	}{
		{"granted", &fakePlatform{supported: true, permission: models.PermissionGranted}, true},
		{"denied", &fakePlatform{supported: true, permission: models.PermissionDenied}, false},
		{"default", &fakePlatform{supported: true, permission: models.PermissionDefault}, false},
		{"unsupported", &fakePlatform{supported: false, permission: models.PermissionGranted}, false},
		{"display error", &fakePlatform{supported: true, permission: models.PermissionGranted, displayErr: errors.New("closed")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil, WithPlatform(tt.platform))
			var n models.Notification
			require.NotPanics(t, func() { n = s.Send(ctx, candidate("A", models.TypeWeather)) })

			assert.Len(t, s.List(ctx, ""), 1)
			if tt.presented {
				assert.Equal(t, []string{n.ID}, tt.platform.displayed)
			} else {
				assert.Empty(t, tt.platform.displayed)
			}
		})
	}
}

func TestPermission(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, models.PermissionDenied, New(nil, nil).Permission(ctx))
	assert.Equal(t, models.PermissionDenied, New(nil, nil, WithPlatform(&fakePlatform{})).RequestPermission(ctx))

	p := &fakePlatform{supported: true, permission: models.PermissionDefault}
	s := New(nil, nil, WithPlatform(p))
	assert.Equal(t, models.PermissionDefault, s.Permission(ctx))
	assert.Equal(t, models.PermissionGranted, s.RequestPermission(ctx))
	assert.Equal(t, models.PermissionGranted, s.Permission(ctx))

	failing := New(nil, nil, WithPlatform(&fakePlatform{supported: true, requestErr: errors.New("blocked")}))
	assert.Equal(t, models.PermissionDenied, failing.RequestPermission(ctx))
}

func TestConcurrentSends(t *testing.T) {
	ctx := context.Background()
	s := New(kv.NewMemory(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Send(ctx, candidate("n", models.TypeGeneral))
		}()
	}
	wg.Wait()
	assert.Len(t, s.List(ctx, ""), 50)
}
