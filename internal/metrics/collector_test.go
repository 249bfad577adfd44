package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/room-reservations/internal/application"
)

type sourceStub struct {
	stats application.Stats
	err   error
}

func (s sourceStub) ComputeStats(context.Context) (application.Stats, error) {
	return s.stats, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleStats() application.Stats {
	return application.Stats{
		Total:    3,
		Pending:  1,
		Approved: 1,
		Rejected: 1,
		BookingsByRoom: []application.RoomCount{
			{RoomID: 1, RoomName: "A101", Count: 2},
			{RoomID: 2, RoomName: "B201", Count: 1},
		},
		TopUsers: []application.UserSummary{{ID: 3, TotalBookings: 3}},
		Trends:   application.Trends{Computed: true, Total: 50, Approved: -25, Rejected: 0},
	}
}

func TestStatsCollector(t *testing.T) {
	t.Run("reports counts per status and room", func(t *testing.T) {
		c := NewStatsCollector(sourceStub{stats: sampleStats()}, 0, quietLogger())

		expected := `
# HELP roombook_bookings Number of bookings by status.
# TYPE roombook_bookings gauge
roombook_bookings{status="approved"} 1
roombook_bookings{status="pending"} 1
roombook_bookings{status="rejected"} 1
# HELP roombook_room_bookings Number of bookings per room.
# TYPE roombook_room_bookings gauge
roombook_room_bookings{room="A101",room_id="1"} 2
roombook_room_bookings{room="B201",room_id="2"} 1
# HELP roombook_bookings_total Number of bookings in the store.
# TYPE roombook_bookings_total gauge
roombook_bookings_total 3
`
		if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "roombook_bookings", "roombook_bookings_total", "roombook_room_bookings"); err != nil {
			t.Fatalf("unexpected metrics: %v", err)
		}
		if got := testutil.CollectAndCount(c, "roombook_trend_change_percent"); got != 3 {
			t.Fatalf("expected 3 trend series, got %d", got)
		}
	})

	t.Run("failed computation only reports stats_up", func(t *testing.T) {
		c := NewStatsCollector(sourceStub{err: errors.New("store offline")}, 0, quietLogger())

		expected := `
# HELP roombook_stats_up Whether the last stats computation succeeded.
# TYPE roombook_stats_up gauge
roombook_stats_up 0
`
		if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
			t.Fatalf("unexpected metrics: %v", err)
		}
	})
}

func TestHandler(t *testing.T) {
	handler, err := Handler(NewStatsCollector(sourceStub{stats: sampleStats()}, 0, quietLogger()))
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `roombook_top_user_bookings{rank="1",user_id="3"} 3`) {
		t.Fatalf("expected leaderboard series in body:\n%s", body)
	}
}
