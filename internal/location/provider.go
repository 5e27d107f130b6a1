package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agrisense/internal/logging"
	"agrisense/internal/models"
)

// Default is the location used when nothing better is known.
var Default = models.Location{Latitude: 41.8780, Longitude: -93.0977, Name: "Default Location"}

var ErrUnknown = errors.New("location not set")

// Provider supplies the location the pipeline works on.
type Provider interface {
	Locate(ctx context.Context) (models.Location, error)
}

// Static holds a location that callers may replace at runtime.
type Static struct {
	mu  sync.RWMutex
	loc *models.Location
}

// NewStatic returns a Static provider; a nil loc makes Locate fail until Set is called.
func NewStatic(loc *models.Location) *Static {
	s := &Static{}
	if loc != nil {
		l := *loc
		s.loc = &l
	}
	return s
}

func (s *Static) Locate(context.Context) (models.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loc == nil {
		return models.Location{}, ErrUnknown
	}
	return *s.loc, nil
}

// Set replaces the held location after validating its coordinates.
func (s *Static) Set(loc models.Location) error {
	if !loc.Valid() {
		return fmt.Errorf("invalid coordinates %.4f,%.4f", loc.Latitude, loc.Longitude)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = &loc
	return nil
}

// Fallback asks Primary first and answers with Default when it fails or returns bad coordinates.
// Its Locate never fails.
type Fallback struct {
	Primary Provider
	Default models.Location
	Logger  *logging.Logger
}

func NewFallback(primary Provider, def models.Location, logger *logging.Logger) *Fallback {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fallback{Primary: primary, Default: def, Logger: logger}
}

func (f *Fallback) Locate(ctx context.Context) (models.Location, error) {
	if f.Primary == nil {
		return f.Default, nil
	}
	loc, err := f.Primary.Locate(ctx)
	if err != nil {
		f.Logger.Warnf("Location lookup failed, using default location: %v", err)
		return f.Default, nil
	}
	if !loc.Valid() {
		f.Logger.Warnf("Location %.4f,%.4f is out of range, using default location", loc.Latitude, loc.Longitude)
		return f.Default, nil
	}
	return loc, nil
}
