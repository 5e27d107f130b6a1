package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// Tasker accepts refresh tasks for asynchronous processing.
type Tasker interface {
	QueueTask(task models.RefreshTask) bool
}

type reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads refresh requests from a topic and hands them to the pipeline.
type Consumer struct {
	reader reader
	svc    Tasker
	logger *logging.Logger
	topic  string
}

func NewConsumer(cfg Config, svc Tasker, logger *logging.Logger) (*Consumer, error) {
	if cfg.Broker == "" {
		return nil, errors.New("kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Broker},
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
	})
	return &Consumer{reader: r, svc: svc, logger: logger, topic: cfg.Topic}, nil
}

// Start reads messages until ctx is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.topic)

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			c.handle(msg)
		}
	}()
}

func (c *Consumer) handle(msg kafka.Message) {
	task, err := decodeRequest(msg.Value)
	if err != nil {
		c.logger.Errorf("Invalid refresh request at offset %d: %v", msg.Offset, err)
		return
	}
	if !c.svc.QueueTask(task) {
		c.logger.Warnf("Refresh request %s dropped", task.RequestID)
		return
	}
	c.logger.Debugf("Processed Kafka message %s", task.RequestID)
}

type refreshRequest struct {
	RequestID string   `json:"request_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name"`
	Dispatch  bool     `json:"dispatch"`
	Summary   bool     `json:"summary"`
}

// decodeRequest parses a refresh request. Coordinates are optional but must come as a valid pair.
func decodeRequest(value []byte) (models.RefreshTask, error) {
	var req refreshRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return models.RefreshTask{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	task := models.RefreshTask{
		RequestID: req.RequestID,
		Dispatch:  req.Dispatch,
		Summary:   req.Summary,
	}
	switch {
	case req.Latitude == nil && req.Longitude == nil:
	case req.Latitude == nil || req.Longitude == nil:
		return models.RefreshTask{}, errors.New("latitude and longitude must be given together")
	default:
		loc := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude, Name: req.Name}
		if !loc.Valid() {
			return models.RefreshTask{}, fmt.Errorf("coordinates out of range: %.4f,%.4f", loc.Latitude, loc.Longitude)
		}
		task.Location = &loc
	}
	return task, nil
}

func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
