package messaging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanaquest/progress-engine/internal/domain/shared"
)

var busDay = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

// fakeRedisClient records published payloads and lets tests inject
// incoming Pub/Sub messages.
type fakeRedisClient struct {
	mu        sync.Mutex
	published []string
	incoming  chan RedisMessage
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{incoming: make(chan RedisMessage, 16)}
}

func (f *fakeRedisClient) Publish(_ context.Context, _ string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message.(string))
	return nil
}

func (f *fakeRedisClient) Subscribe(context.Context, ...string) (<-chan RedisMessage, error) {
	return f.incoming, nil
}

func (f *fakeRedisClient) Close() error {
	return nil
}

func (f *fakeRedisClient) publishedPayloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	copy(out, f.published)
	return out
}

// eventCollector is a thread-safe handler target.
type eventCollector struct {
	mu     sync.Mutex
	events []shared.Event
}

func (c *eventCollector) handle(event shared.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *eventCollector) snapshot() []shared.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]shared.Event, len(c.events))
	copy(out, c.events)
	return out
}

func newRedisBus(t *testing.T, client *fakeRedisClient, instanceID string) *RedisEventBus {
	t.Helper()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: instanceID,
		// Sync mode keeps local delivery deterministic in tests
		LocalBusConfig: InMemoryEventBusConfig{AsyncMode: false},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisEventBusPublishesEnvelope(t *testing.T) {
	client := newFakeRedisClient()
	bus := newRedisBus(t, client, "node-a")

	collector := &eventCollector{}
	require.NoError(t, bus.Subscribe(shared.EventXPAwarded, collector.handle))

	event := shared.NewXPAwardedEvent("user-1", 30, 130, "LESSON_COMPLETION", busDay)
	require.NoError(t, bus.Publish(event))

	// Local handlers fire alongside the Redis publish
	require.Len(t, collector.snapshot(), 1)

	payloads := client.publishedPayloads()
	require.Len(t, payloads, 1)

	var envelope struct {
		InstanceID  string                 `json:"instance_id"`
		EventType   string                 `json:"event_type"`
		AggregateID string                 `json:"aggregate_id"`
		OccurredAt  time.Time              `json:"occurred_at"`
		Payload     map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &envelope))
	assert.Equal(t, "node-a", envelope.InstanceID)
	assert.Equal(t, string(shared.EventXPAwarded), envelope.EventType)
	assert.Equal(t, "user-1", envelope.AggregateID)
	assert.True(t, envelope.OccurredAt.Equal(busDay))
	assert.EqualValues(t, 30, envelope.Payload["amount"])
}

func TestRedisEventBusDeliversRemoteEvents(t *testing.T) {
	client := newFakeRedisClient()
	bus := newRedisBus(t, client, "node-a")

	collector := &eventCollector{}
	require.NoError(t, bus.SubscribeAll(collector.handle))

	remote, err := json.Marshal(map[string]interface{}{
		"instance_id":  "node-b",
		"event_type":   string(shared.EventStreakExtended),
		"aggregate_id": "user-9",
		"occurred_at":  busDay,
		"payload":      map[string]interface{}{"new_count": 4},
	})
	require.NoError(t, err)
	client.incoming <- RedisMessage{Channel: "progress-engine:events", Payload: string(remote)}

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	got := collector.snapshot()[0]
	assert.Equal(t, shared.EventStreakExtended, got.EventType())
	assert.Equal(t, "user-9", got.AggregateID())
	assert.True(t, got.OccurredAt().Equal(busDay))
}

func TestRedisEventBusIgnoresOwnMessages(t *testing.T) {
	client := newFakeRedisClient()
	bus := newRedisBus(t, client, "node-a")

	collector := &eventCollector{}
	require.NoError(t, bus.SubscribeAll(collector.handle))

	own, err := json.Marshal(map[string]interface{}{
		"instance_id":  "node-a",
		"event_type":   string(shared.EventXPAwarded),
		"aggregate_id": "user-1",
		"occurred_at":  busDay,
	})
	require.NoError(t, err)
	remote, err := json.Marshal(map[string]interface{}{
		"instance_id":  "node-b",
		"event_type":   string(shared.EventXPAwarded),
		"aggregate_id": "user-2",
		"occurred_at":  busDay,
	})
	require.NoError(t, err)

	// The loop drains in order, so the remote message arriving proves the
	// own message was already seen and dropped.
	client.incoming <- RedisMessage{Payload: string(own)}
	client.incoming <- RedisMessage{Payload: string(remote)}

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "user-2", collector.snapshot()[0].AggregateID())
}

func TestRedisEventBusRequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}

func TestRedisEventBusRejectsPublishAfterClose(t *testing.T) {
	client := newFakeRedisClient()
	bus := newRedisBus(t, client, "node-a")

	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewXPAwardedEvent("user-1", 5, 5, "DAILY_LOGIN", busDay))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
