package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"
	"agrisense/internal/presenter"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline is the part of the pipeline service the API drives.
type Pipeline interface {
	Locate(ctx context.Context, override *models.Location) (models.Location, error)
	Compute(ctx context.Context, loc models.Location, at time.Time) models.Report
	Refresh(ctx context.Context, loc models.Location, at time.Time) models.Report
	Dispatch(ctx context.Context, report models.Report) []models.Notification
	SendSummary(ctx context.Context, report models.Report) []models.Notification
	Latest() (models.Report, bool)
	QueueTask(task models.RefreshTask) bool
}

// Notifications is the notification log as seen by the API.
type Notifications interface {
	Send(ctx context.Context, c models.Candidate) models.Notification
	List(ctx context.Context, t models.NotificationType) []models.Notification
	Unread(ctx context.Context) []models.Notification
	MarkRead(ctx context.Context, id string)
	MarkAllRead(ctx context.Context)
	ClearOlderThan(ctx context.Context, days int) int
	ClearAll(ctx context.Context)
	Permission(ctx context.Context) models.Permission
	RequestPermission(ctx context.Context) models.Permission
}

type HistoryReader interface {
	ListAdvisoryHistory(ctx context.Context, category string, limit, offset int) ([]models.AdvisoryRecord, int, error)
}

type LocationSetter interface {
	Set(loc models.Location) error
}

type AddressSearcher interface {
	Search(ctx context.Context, address string) (models.Location, bool)
}

// Deps are the collaborators behind the HTTP API. History, Locations, Geocoder, Hub and
// Gatherer are optional.
type Deps struct {
	Pipeline      Pipeline
	Notifications Notifications
	History       HistoryReader
	Locations     LocationSetter
	Geocoder      AddressSearcher
	Hub           *presenter.Hub
	Gatherer      prometheus.Gatherer
}

type Handler struct {
	deps     Deps
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(deps Deps, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

var errHalfCoordinates = errors.New("lat and lng must be given together")

// queryLocation reads optional lat/lng query parameters.
func queryLocation(c *gin.Context) (*models.Location, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, errHalfCoordinates
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid lat")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errors.New("invalid lng")
	}
	loc := models.Location{Latitude: lat, Longitude: lng}
	if !loc.Valid() {
		return nil, errors.New("coordinates out of range")
	}
	return &loc, nil
}

// compute resolves the request location and builds a report without recording it.
// It writes the error response itself.
func (h *Handler) compute(c *gin.Context) (models.Report, bool) {
	override, err := queryLocation(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Report{}, false
	}
	loc, err := h.deps.Pipeline.Locate(c.Request.Context(), override)
	if err != nil {
		h.logger.Errorf("Failed to resolve location: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Report{}, false
	}
	return h.deps.Pipeline.Compute(c.Request.Context(), loc, time.Time{}), true
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	if report, ok := h.compute(c); ok {
		c.JSON(http.StatusOK, report.Snapshot)
	}
}

func (h *Handler) GetAdvisories(c *gin.Context) {
	if report, ok := h.compute(c); ok {
		c.JSON(http.StatusOK, report.Advisories)
	}
}

func (h *Handler) GetVegetation(c *gin.Context) {
	if report, ok := h.compute(c); ok {
		c.JSON(http.StatusOK, report.Vegetation)
	}
}

func (h *Handler) GetAlerts(c *gin.Context) {
	if report, ok := h.compute(c); ok {
		c.JSON(http.StatusOK, gin.H{
			"weather_alerts":  report.WeatherAlerts,
			"advisory_alerts": report.AdvisoryAlerts,
		})
	}
}

func (h *Handler) GetReport(c *gin.Context) {
	if report, ok := h.compute(c); ok {
		c.JSON(http.StatusOK, report)
	}
}

func (h *Handler) GetLatestReport(c *gin.Context) {
	report, ok := h.deps.Pipeline.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

type refreshRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Dispatch  bool     `json:"dispatch"`
	Summary   bool     `json:"summary"`
	Async     bool     `json:"async"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorf("Invalid request body for refresh: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	var override *models.Location
	switch {
	case req.Latitude == nil && req.Longitude == nil:
	case req.Latitude == nil || req.Longitude == nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be given together"})
		return
	default:
		override = &models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if !override.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
			return
		}
	}

	if req.Async {
		task := models.RefreshTask{Location: override, Dispatch: req.Dispatch, Summary: req.Summary}
		if !h.deps.Pipeline.QueueTask(task) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Refresh queue is full"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Refresh queued"})
		return
	}

	ctx := c.Request.Context()
	loc, err := h.deps.Pipeline.Locate(ctx, override)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report := h.deps.Pipeline.Refresh(ctx, loc, time.Time{})
	sent := []models.Notification{}
	if req.Dispatch {
		sent = append(sent, h.deps.Pipeline.Dispatch(ctx, report)...)
	}
	if req.Summary {
		sent = append(sent, h.deps.Pipeline.SendSummary(ctx, report)...)
	}
	h.logger.Infof("Refreshed %.4f,%.4f, sent %d notifications", loc.Latitude, loc.Longitude, len(sent))
	c.JSON(http.StatusOK, gin.H{"report": report, "notifications": sent})
}

func (h *Handler) GetLocation(c *gin.Context) {
	loc, err := h.deps.Pipeline.Locate(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loc)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
}

func (h *Handler) SetLocation(c *gin.Context) {
	if h.deps.Locations == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Location is fixed"})
		return
	}
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var loc models.Location
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		loc = models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude, Name: req.Name}
	case strings.TrimSpace(req.Address) != "":
		if h.deps.Geocoder == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Address lookup is not configured"})
			return
		}
		found, ok := h.deps.Geocoder.Search(c.Request.Context(), req.Address)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		loc = found
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude or address required"})
		return
	}

	if err := h.deps.Locations.Set(loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Infof("Location set to %.4f,%.4f", loc.Latitude, loc.Longitude)
	c.JSON(http.StatusOK, loc)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("unread") == "true" {
		c.JSON(http.StatusOK, h.deps.Notifications.Unread(ctx))
		return
	}
	t := models.NotificationType(c.Query("type"))
	if t != "" && !t.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Notifications.List(ctx, t))
}

func (h *Handler) SendNotification(c *gin.Context) {
	var candidate models.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		h.logger.Errorf("Invalid request body for notification: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !candidate.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid type"})
		return
	}
	switch candidate.Priority {
	case models.NotificationHigh, models.NotificationMedium, models.NotificationLow:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}

	n := h.deps.Notifications.Send(c.Request.Context(), candidate)
	h.logger.Infof("Sent notification: %s", n.ID)
	c.JSON(http.StatusCreated, n)
}

func (h *Handler) MarkRead(c *gin.Context) {
	h.deps.Notifications.MarkRead(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	h.deps.Notifications.MarkAllRead(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// ClearNotifications removes everything, or only records older than older_than_days when given.
func (h *Handler) ClearNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	daysStr := c.Query("older_than_days")
	if daysStr == "" {
		h.deps.Notifications.ClearAll(ctx)
		c.Status(http.StatusNoContent)
		return
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid older_than_days"})
		return
	}
	removed := h.deps.Notifications.ClearOlderThan(ctx, days)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *Handler) GetPermission(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permission": h.deps.Notifications.Permission(c.Request.Context())})
}

func (h *Handler) RequestPermission(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permission": h.deps.Notifications.RequestPermission(c.Request.Context())})
}

func (h *Handler) ListHistory(c *gin.Context) {
	if h.deps.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Advisory history requires the postgres backend"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	records, total, err := h.deps.History.ListAdvisoryHistory(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list advisory history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list advisory history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records, "total": total})
}

func (h *Handler) ServeWS(c *gin.Context) {
	if h.deps.Hub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "WebSocket push is disabled"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	if !h.deps.Hub.AddConnection(conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		conn.Close()
		return
	}
	defer func() {
		h.deps.Hub.RemoveConnection(conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
