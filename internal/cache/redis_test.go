package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/room-reservations/internal/application"
)

type kvStub struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newKVStub() *kvStub {
	return &kvStub{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *kvStub) Get(ctx context.Context, key string) *redis.StringCmd {
	if s.err != nil {
		return redis.NewStringResult("", s.err)
	}
	value, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (s *kvStub) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.err != nil {
		return redis.NewStatusResult("", s.err)
	}
	raw, _ := value.([]byte)
	s.values[key] = string(raw)
	s.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func sampleStats() application.Stats {
	return application.Stats{
		Total:          3,
		Pending:        1,
		Approved:       1,
		Rejected:       1,
		BookingsByRoom: []application.RoomCount{{RoomID: 1, RoomName: "A101", Count: 3}},
		TopUsers:       []application.UserSummary{{ID: 1, Email: "a@example.com", TotalBookings: 3}},
		Trends:         application.Trends{Computed: true, WindowDays: 30, Total: 12.5},
	}
}

func TestRedisStatsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss reports not found without error", func(t *testing.T) {
		c := newRedisStatsCache(newKVStub(), time.Minute)
		_, ok, err := c.GetStats(ctx, "stats:v1")
		if ok || err != nil {
			t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("round trips under the prefixed key with ttl", func(t *testing.T) {
		store := newKVStub()
		c := newRedisStatsCache(store, time.Minute)

		if err := c.SetStats(ctx, "stats:v1", sampleStats()); err != nil {
			t.Fatalf("SetStats failed: %v", err)
		}
		if store.ttls["roombook:stats:v1"] != time.Minute {
			t.Fatalf("expected ttl on prefixed key, got %v", store.ttls)
		}
		got, ok, err := c.GetStats(ctx, "stats:v1")
		if err != nil || !ok {
			t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
		}
		if got.Total != 3 || got.BookingsByRoom[0].RoomName != "A101" || got.Trends.Total != 12.5 {
			t.Fatalf("unexpected stats: %+v", got)
		}
	})

	t.Run("corrupt payloads are reported", func(t *testing.T) {
		store := newKVStub()
		store.values["roombook:bad"] = "{not json"
		_, ok, err := newRedisStatsCache(store, 0).GetStats(ctx, "bad")
		if ok || err == nil {
			t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("client errors are wrapped", func(t *testing.T) {
		sentinel := errors.New("connection refused")
		store := newKVStub()
		store.err = sentinel
		c := newRedisStatsCache(store, 0)
		if _, _, err := c.GetStats(ctx, "k"); !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped get error, got %v", err)
		}
		if err := c.SetStats(ctx, "k", sampleStats()); !errors.Is(err, sentinel) {
			t.Fatalf("expected wrapped set error, got %v", err)
		}
	})
}

func TestRedisStatsCache_Integration(t *testing.T) {
	addr := os.Getenv("ROOMBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROOMBOOK_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, Options{Addr: addr})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer func() { _ = client.Close() }()

	c := NewRedisStatsCache(client, 5*time.Second)
	key := "test:" + time.Now().Format(time.RFC3339Nano)
	if err := c.SetStats(ctx, key, sampleStats()); err != nil {
		t.Fatalf("SetStats failed: %v", err)
	}
	got, ok, err := c.GetStats(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	want, _ := json.Marshal(sampleStats())
	have, _ := json.Marshal(got)
	if string(want) != string(have) {
		t.Fatalf("expected %s, got %s", want, have)
	}
}
