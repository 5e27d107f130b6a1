package notification

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"sync"
	"time"

	"agrisense/internal/kv"
	"agrisense/internal/logging"
	"agrisense/internal/metrics"
	"agrisense/internal/models"

	"github.com/google/uuid"
)

// StorageKey is the single key under which the notification log is persisted.
const StorageKey = "agrisense-notifications"

// DefaultRetentionDays is used by ClearOlderThan when no positive age is given.
const DefaultRetentionDays = 7

// Platform presents notifications to the user and owns the permission state.
type Platform interface {
	Supported() bool
	Permission(ctx context.Context) models.Permission
	RequestPermission(ctx context.Context) (models.Permission, error)
	Display(ctx context.Context, n models.Notification) error
}

// Store is the newest-first notification log. Every mutation is serialized behind mu.
// No operation returns an error: storage and platform failures are logged and absorbed.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	platform Platform
	logger   *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	maxItems int

	items  []models.Notification
	loaded bool
}

type Option func(*Store)

func WithPlatform(p Platform) Option {
	return func(s *Store) {
		s.platform = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithMaxItems caps the log length; 0 keeps everything.
func WithMaxItems(n int) Option {
	return func(s *Store) {
		s.maxItems = n
	}
}

func New(store kv.Store, logger *logging.Logger, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.kv == nil {
		s.kv = kv.NewMemory()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Send records the candidate as a new unread notification and presents it when allowed.
func (s *Store) Send(ctx context.Context, c models.Candidate) models.Notification {
	n := models.Notification{
		ID:        uuid.NewString(),
		Title:     c.Title,
		Body:      c.Body,
		Type:      c.Type,
		Priority:  c.Priority,
		Tag:       c.Tag,
		Data:      maps.Clone(c.Data),
		Timestamp: s.now().UTC(),
	}

	s.mu.Lock()
	s.ensureLoaded(ctx)
	s.items = append([]models.Notification{n.Clone()}, s.items...)
	if s.maxItems > 0 && len(s.items) > s.maxItems {
		s.items = s.items[:s.maxItems]
	}
	s.save(ctx)
	s.mu.Unlock()

	presented := s.present(ctx, n)
	s.metrics.IncNotification(string(n.Type), presented)
	return n
}

func (s *Store) present(ctx context.Context, n models.Notification) bool {
	if s.platform == nil || !s.platform.Supported() {
		s.logger.Debugf("Notification platform unsupported, recorded %s without presenting", n.ID)
		return false
	}
	if perm := s.platform.Permission(ctx); perm != models.PermissionGranted {
		s.logger.Debugf("Notification permission is %s, recorded %s without presenting", perm, n.ID)
		return false
	}
	if err := s.platform.Display(ctx, n); err != nil {
		s.logger.Warnf("Failed to present notification %s: %v", n.ID, err)
		return false
	}
	return true
}

// List returns notifications of type t in stored order; an empty t returns all of them.
func (s *Store) List(ctx context.Context, t models.NotificationType) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	out := make([]models.Notification, 0, len(s.items))
	for _, n := range s.items {
		if t == "" || n.Type == t {
			out = append(out, n.Clone())
		}
	}
	return out
}

func (s *Store) Unread(ctx context.Context) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	out := []models.Notification{}
	for _, n := range s.items {
		if !n.Read {
			out = append(out, n.Clone())
		}
	}
	return out
}

// MarkRead flags the notification as read. Unknown ids are ignored.
func (s *Store) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].Read {
				s.items[i].Read = true
				s.save(ctx)
			}
			return
		}
	}
}

func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	for i := range s.items {
		s.items[i].Read = true
	}
	s.save(ctx)
}

// ClearOlderThan drops notifications stamped at or before now minus days and returns how many went.
func (s *Store) ClearOlderThan(ctx context.Context, days int) int {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	kept := s.items[:0]
	for _, n := range s.items {
		if n.Timestamp.After(cutoff) {
			kept = append(kept, n)
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	if removed > 0 {
		s.save(ctx)
	}
	return removed
}

func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	s.items = nil
	s.save(ctx)
}

// Permission reports the platform permission; a missing or unsupported platform is denied.
func (s *Store) Permission(ctx context.Context) models.Permission {
	if s.platform == nil || !s.platform.Supported() {
		return models.PermissionDenied
	}
	return s.platform.Permission(ctx)
}

// RequestPermission asks the platform for permission and reports the outcome.
func (s *Store) RequestPermission(ctx context.Context) models.Permission {
	if s.platform == nil || !s.platform.Supported() {
		return models.PermissionDenied
	}
	perm, err := s.platform.RequestPermission(ctx)
	if err != nil {
		s.logger.Warnf("Notification permission request failed: %v", err)
		return models.PermissionDenied
	}
	return perm
}

// ensureLoaded reads the persisted log once. A failed read starts from an empty log.
// Callers hold mu.
func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Errorf("Failed to load notifications, starting empty: %v", err)
		}
		return
	}
	var items []models.Notification
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Errorf("Stored notifications are corrupt, starting empty: %v", err)
		return
	}
	s.items = items
}

// save persists the log. A failed write keeps the in-memory state. Callers hold mu.
func (s *Store) save(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []models.Notification{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		s.logger.Errorf("Failed to encode notifications: %v", err)
		return
	}
	if err := s.kv.Set(ctx, StorageKey, raw); err != nil {
		s.logger.Errorf("Failed to persist notifications: %v", err)
	}
}
