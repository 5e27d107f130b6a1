package location

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrisense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context) (models.Location, error)

func (f providerFunc) Locate(ctx context.Context) (models.Location, error) { return f(ctx) }

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(nil)
	_, err := s.Locate(ctx)
	assert.ErrorIs(t, err, ErrUnknown)

	require.NoError(t, s.Set(models.Location{Latitude: -33.9, Longitude: 18.4}))
	loc, err := s.Locate(ctx)
	require.NoError(t, err)
	assert.Equal(t, -33.9, loc.Latitude)

	assert.Error(t, s.Set(models.Location{Latitude: 91}))
	loc, _ = s.Locate(ctx)
	assert.Equal(t, -33.9, loc.Latitude)
}

func TestFallback(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		primary Provider
		want    models.Location
	}{
		{"no primary", nil, Default},
		{"primary error", providerFunc(func(context.Context) (models.Location, error) {
			return models.Location{}, errors.New("permission denied")
		}), Default},
		{"out of range", providerFunc(func(context.Context) (models.Location, error) {
			return models.Location{Latitude: 120}, nil
		}), Default},
		{"primary ok", NewStatic(&models.Location{Latitude: 10, Longitude: 20}), models.Location{Latitude: 10, Longitude: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewFallback(tt.primary, Default, nil).Locate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc)
		})
	}
}

func TestDefaultLocation(t *testing.T) {
	assert.Equal(t, 41.8780, Default.Latitude)
	assert.Equal(t, -93.0977, Default.Longitude)
	assert.Equal(t, "Default Location", Default.Name)
}

func TestGeocoder_Reverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "41.878", r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"display_name":"Story County, Iowa, United States"}`)
	}))
	defer server.Close()

	g := NewGeocoder(server.URL+"/", nil)
	assert.Equal(t, "Story County, Iowa, United States", g.Reverse(context.Background(), 41.878, -93.0977))
}

func TestGeocoder_ReverseFallsBack(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"bad json":     func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{`) },
		"no name":      func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"error":"Unable to geocode"}`) },
	}
	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(h)
			defer server.Close()
			g := NewGeocoder(server.URL, nil)
			assert.Equal(t, "Location (41.8780, -93.0977)", g.Reverse(context.Background(), 41.878, -93.0977))
		})
	}
}

func TestGeocoder_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "nowhere" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"lat":"42.0308","lon":"-93.6319","display_name":"Ames, Iowa"}]`)
	}))
	defer server.Close()
	g := NewGeocoder(server.URL, nil)

	loc, ok := g.Search(context.Background(), "Ames")
	require.True(t, ok)
	assert.Equal(t, 42.0308, loc.Latitude)
	assert.Equal(t, "Ames, Iowa", loc.Name)

	_, ok = g.Search(context.Background(), "nowhere")
	assert.False(t, ok)
}
