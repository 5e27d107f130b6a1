package kafka

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	task, err := decodeRequest([]byte(`{"request_id":"r1","latitude":41.878,"longitude":-93.0977,"dispatch":true}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", task.RequestID)
	require.NotNil(t, task.Location)
	assert.Equal(t, 41.878, task.Location.Latitude)
	assert.True(t, task.Dispatch)
	assert.False(t, task.Summary)

	task, err = decodeRequest([]byte(`{"summary":true}`))
	require.NoError(t, err)
	assert.Nil(t, task.Location)
	assert.True(t, task.Summary)
}

func TestDecodeRequest_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":     `{"request_id":`,
		"half pair":    `{"latitude":10}`,
		"out of range": `{"latitude":10,"longitude":200}`,
		"wrong types":  `{"latitude":"north","longitude":1}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decodeRequest([]byte(payload))
			assert.Error(t, err)
		})
	}
}

type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   chan struct{}
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-f.closed:
		return kafka.Message{}, io.EOF
	}
}

func (f *fakeReader) Close() error {
	close(f.closed)
	return nil
}

type fakeTasker struct {
	mu    sync.Mutex
	tasks []models.RefreshTask
}

func (f *fakeTasker) QueueTask(task models.RefreshTask) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return true
}

func (f *fakeTasker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func TestConsumer_QueuesValidMessages(t *testing.T) {
	reader := &fakeReader{
		messages: []kafka.Message{
			{Value: []byte(`{"request_id":"a","dispatch":true}`)},
			{Value: []byte(`garbage`)},
			{Value: []byte(`{"request_id":"b","latitude":1,"longitude":2}`)},
		},
		closed: make(chan struct{}),
	}
	tasker := &fakeTasker{}
	c := &Consumer{reader: reader, svc: tasker, logger: logging.Discard(), topic: "agrisense_refresh"}

	var wg sync.WaitGroup
	c.Start(context.Background(), &wg)

	require.Eventually(t, func() bool { return tasker.count() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	wg.Wait()

	assert.Equal(t, "a", tasker.tasks[0].RequestID)
	assert.Equal(t, "b", tasker.tasks[1].RequestID)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{reader: &fakeReader{closed: make(chan struct{})}, svc: &fakeTasker{}, logger: logging.Discard()}

	var wg sync.WaitGroup
	c.Start(ctx, &wg)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNewConsumer_RequiresBrokerAndTopic(t *testing.T) {
	_, err := NewConsumer(Config{Topic: "t"}, &fakeTasker{}, logging.Discard())
	assert.Error(t, err)
	_, err = NewConsumer(Config{Broker: "localhost:9092"}, &fakeTasker{}, logging.Discard())
	assert.Error(t, err)
}
