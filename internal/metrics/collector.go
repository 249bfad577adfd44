// Package metrics exposes booking statistics to Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/room-reservations/internal/application"
)

const namespace = "roombook"

// StatsSource computes the statistics reported on every scrape.
type StatsSource interface {
	ComputeStats(ctx context.Context) (application.Stats, error)
}

// StatsCollector is a prometheus.Collector that recomputes stats when scraped.
type StatsCollector struct {
	source  StatsSource
	timeout time.Duration
	logger  *slog.Logger

	total        *prometheus.Desc
	bookings     *prometheus.Desc
	roomBookings *prometheus.Desc
	userBookings *prometheus.Desc
	trend        *prometheus.Desc
	up           *prometheus.Desc
}

// NewStatsCollector builds a collector over source. Each scrape gets at most timeout.
func NewStatsCollector(source StatsSource, timeout time.Duration, logger *slog.Logger) *StatsCollector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsCollector{
		source:  source,
		timeout: timeout,
		logger:  logger,
		total: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bookings_total"),
			"Number of bookings in the store.",
			nil, nil,
		),
		bookings: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bookings"),
			"Number of bookings by status.",
			[]string{"status"}, nil,
		),
		roomBookings: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "room", "bookings"),
			"Number of bookings per room.",
			[]string{"room_id", "room"}, nil,
		),
		userBookings: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "top_user", "bookings"),
			"Booking count of the users on the leaderboard.",
			[]string{"user_id", "rank"}, nil,
		),
		trend: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "trend", "change_percent"),
			"Change between the current and previous trend window.",
			[]string{"series"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "stats_up"),
			"Whether the last stats computation succeeded.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.bookings
	ch <- c.roomBookings
	ch <- c.userBookings
	ch <- c.trend
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.ComputeStats(ctx)
	if err != nil {
		c.logger.Warn("stats scrape failed", "error", err)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stats.Total))
	ch <- prometheus.MustNewConstMetric(c.bookings, prometheus.GaugeValue, float64(stats.Pending), "pending")
	ch <- prometheus.MustNewConstMetric(c.bookings, prometheus.GaugeValue, float64(stats.Approved), "approved")
	ch <- prometheus.MustNewConstMetric(c.bookings, prometheus.GaugeValue, float64(stats.Rejected), "rejected")

	for _, room := range stats.BookingsByRoom {
		ch <- prometheus.MustNewConstMetric(c.roomBookings, prometheus.GaugeValue, float64(room.Count),
			strconv.FormatInt(room.RoomID, 10), room.RoomName)
	}
	for i, user := range stats.TopUsers {
		ch <- prometheus.MustNewConstMetric(c.userBookings, prometheus.GaugeValue, float64(user.TotalBookings),
			strconv.FormatInt(user.ID, 10), strconv.Itoa(i+1))
	}
	if stats.Trends.Computed {
		ch <- prometheus.MustNewConstMetric(c.trend, prometheus.GaugeValue, stats.Trends.Total, "total")
		ch <- prometheus.MustNewConstMetric(c.trend, prometheus.GaugeValue, stats.Trends.Approved, "approved")
		ch <- prometheus.MustNewConstMetric(c.trend, prometheus.GaugeValue, stats.Trends.Rejected, "rejected")
	}
}

// Handler registers collector on a fresh registry and returns its /metrics handler.
func Handler(collector prometheus.Collector) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
