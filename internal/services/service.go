package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"agrisense/internal/advisory"
	"agrisense/internal/alerts"
	"agrisense/internal/config"
	"agrisense/internal/location"
	"agrisense/internal/logging"
	"agrisense/internal/metrics"
	"agrisense/internal/models"

	"github.com/google/uuid"
)

// Environment produces snapshots and vegetation indices.
type Environment interface {
	Snapshot(ctx context.Context, loc models.Location, at time.Time) models.Snapshot
	Vegetation(loc models.Location, at time.Time) models.Vegetation
	Now() time.Time
}

// Notifier records and presents notifications.
type Notifier interface {
	Send(ctx context.Context, c models.Candidate) models.Notification
	ClearOlderThan(ctx context.Context, days int) int
}

// History records the advisories derived by each refresh.
type History interface {
	SaveAdvisories(ctx context.Context, loc models.Location, advisories []models.Advisory, createdAt time.Time) error
}

// Namer resolves a display name for coordinates.
type Namer interface {
	Reverse(ctx context.Context, lat, lng float64) string
}

// Service runs the snapshot -> advisory -> alert -> notification pipeline.
// Refresh requests are processed by a worker pool fed from a bounded queue.
type Service struct {
	env       Environment
	notifier  Notifier
	locations location.Provider
	history   History
	namer     Namer
	logger    *logging.Logger
	metrics   *metrics.Metrics
	config    config.Config
	tasks     chan models.RefreshTask
	ctx       context.Context
	cancel    context.CancelFunc
	wg        *sync.WaitGroup

	mu        sync.RWMutex
	latest    models.Report
	hasLatest bool
}

type Option func(*Service)

func WithHistory(h History) Option {
	return func(s *Service) {
		s.history = h
	}
}

func WithNamer(n Namer) Option {
	return func(s *Service) {
		s.namer = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a pipeline Service.
func New(env Environment, notifier Notifier, locations location.Provider, logger *logging.Logger, cfg config.Config, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	queueSize := cfg.Notification.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	svc := &Service{
		env:       env,
		notifier:  notifier,
		locations: locations,
		logger:    logger,
		config:    cfg,
		tasks:     make(chan models.RefreshTask, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = logging.Discard()
	}
	if svc.locations == nil {
		svc.locations = location.NewFallback(nil, location.Default, svc.logger)
	}
	return svc
}

// Start launches the worker pool and the retention and summary schedules.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	workers := s.config.Notification.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	if interval := s.config.Notification.RetentionInterval; interval > 0 {
		s.wg.Add(1)
		go s.every("retention", interval, s.sweep)
	}
	if interval := s.config.Notification.SummaryInterval; interval > 0 {
		s.wg.Add(1)
		go s.every("summary", interval, func() {
			s.QueueTask(models.RefreshTask{RequestID: uuid.NewString(), Summary: true})
		})
	}
}

// Stop cancels the workers and schedules. Callers wait on the WaitGroup passed to Start.
func (s *Service) Stop() {
	s.cancel()
}

// QueueTask enqueues a refresh request. It reports false and drops the task when the queue is full.
func (s *Service) QueueTask(task models.RefreshTask) bool {
	if task.RequestID == "" {
		task.RequestID = uuid.NewString()
	}
	select {
	case s.tasks <- task:
		s.logger.Infof("Queued task: request_id=%s", task.RequestID)
		return true
	default:
		s.logger.Errorf("Queue full, dropping task: request_id=%s", task.RequestID)
		return false
	}
}

// worker processes tasks until the service is stopped.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			s.handleTask(task)
		}
	}
}

func (s *Service) every(name string, interval time.Duration, fn func()) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Schedule %s stopped", name)
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (s *Service) sweep() {
	removed := s.notifier.ClearOlderThan(s.ctx, s.config.Notification.RetentionDays)
	if removed > 0 {
		s.logger.Infof("Retention sweep removed %d notifications", removed)
	}
}

func (s *Service) handleTask(task models.RefreshTask) {
	loc, err := s.Locate(s.ctx, task.Location)
	if err != nil {
		s.logger.Errorf("Task %s has no usable location: %v", task.RequestID, err)
		return
	}

	report := s.Refresh(s.ctx, loc, time.Time{})
	sent := 0
	if task.Dispatch {
		sent += len(s.Dispatch(s.ctx, report))
	}
	if task.Summary {
		sent += len(s.SendSummary(s.ctx, report))
	}
	s.logger.Infof("Task %s refreshed %.4f,%.4f: %d advisories, %d weather alerts, %d advisory alerts, %d notifications",
		task.RequestID, loc.Latitude, loc.Longitude, len(report.Advisories),
		len(report.WeatherAlerts), len(report.AdvisoryAlerts), sent)
}

// Locate returns override when given, otherwise the provider's location.
// Unnamed locations are named through the geocoder when one is configured.
func (s *Service) Locate(ctx context.Context, override *models.Location) (models.Location, error) {
	var loc models.Location
	if override != nil {
		loc = *override
	} else {
		var err error
		if loc, err = s.locations.Locate(ctx); err != nil {
			return models.Location{}, err
		}
	}
	if !loc.Valid() {
		return models.Location{}, errors.New("coordinates out of range")
	}
	if loc.Name == "" && s.namer != nil {
		loc.Name = s.namer.Reverse(ctx, loc.Latitude, loc.Longitude)
	}
	return loc, nil
}

// Compute builds a report for loc at the given time (zero means now) without recording it.
func (s *Service) Compute(ctx context.Context, loc models.Location, at time.Time) models.Report {
	if at.IsZero() {
		at = s.env.Now()
	}
	snap := s.env.Snapshot(ctx, loc, at)
	advisories := advisory.Derive(snap)
	return models.Report{
		Snapshot:       snap,
		Vegetation:     s.env.Vegetation(loc, at),
		Advisories:     advisories,
		WeatherAlerts:  alerts.Weather(snap, at),
		AdvisoryAlerts: alerts.Advisory(advisories, at),
	}
}

// Refresh computes a report like Compute, then counts its alerts, records its advisories
// in the history and keeps it as the latest report.
func (s *Service) Refresh(ctx context.Context, loc models.Location, at time.Time) models.Report {
	if at.IsZero() {
		at = s.env.Now()
	}
	report := s.Compute(ctx, loc, at)
	for _, a := range report.WeatherAlerts {
		s.metrics.IncAlert("weather", string(a.Severity))
	}
	for _, a := range report.AdvisoryAlerts {
		s.metrics.IncAlert("advisory", string(a.Priority))
	}

	if s.history != nil {
		if err := s.history.SaveAdvisories(ctx, loc, report.Advisories, at); err != nil {
			s.logger.Errorf("Failed to record advisory history: %v", err)
		}
	}

	s.mu.Lock()
	s.latest = report
	s.hasLatest = true
	s.mu.Unlock()
	return report
}

// Latest returns the most recent report, if any refresh has run.
func (s *Service) Latest() (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// Dispatch sends every alert in the report as a notification, weather alerts first.
func (s *Service) Dispatch(ctx context.Context, report models.Report) []models.Notification {
	sent := make([]models.Notification, 0, len(report.WeatherAlerts)+len(report.AdvisoryAlerts))
	for _, a := range report.WeatherAlerts {
		sent = append(sent, s.notifier.Send(ctx, alerts.WeatherCandidate(a)))
	}
	for _, a := range report.AdvisoryAlerts {
		sent = append(sent, s.notifier.Send(ctx, alerts.AdvisoryCandidate(a)))
	}
	return sent
}

// SendSummary sends the daily summary and, when advisories are in alert, the advisory summary.
func (s *Service) SendSummary(ctx context.Context, report models.Report) []models.Notification {
	candidates := alerts.Summaries(report.Snapshot, report.Advisories)
	sent := make([]models.Notification, 0, len(candidates))
	for _, c := range candidates {
		sent = append(sent, s.notifier.Send(ctx, c))
	}
	return sent
}
