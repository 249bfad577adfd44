package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

const (
	// DefaultTopUsers is the leaderboard length used when none is configured.
	DefaultTopUsers = 5
	// DefaultTrendWindowDays is the trend comparison window used when none is configured.
	DefaultTrendWindowDays = 30
)

// BookingLister lists bookings for reporting.
type BookingLister interface {
	ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error)
}

// UserLister lists users in creation order.
type UserLister interface {
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

// RoomLister lists rooms in insertion order.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]persistence.Room, error)
}

// StatsCache stores computed statistics under opaque keys.
type StatsCache interface {
	GetStats(ctx context.Context, key string) (Stats, bool, error)
	SetStats(ctx context.Context, key string, stats Stats) error
}

// Versioner exposes a counter that changes whenever the underlying data does.
type Versioner interface {
	Version() uint64
}

// ReportOption customises a ReportService.
type ReportOption func(*ReportService)

// WithTopUsers sets the leaderboard length. Non-positive values are ignored.
func WithTopUsers(n int) ReportOption {
	return func(s *ReportService) {
		if n > 0 {
			s.topUsers = n
		}
	}
}

// WithTrendWindow sets the number of days compared by the trends. Non-positive values are ignored.
func WithTrendWindow(days int) ReportOption {
	return func(s *ReportService) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithStatsCache caches results keyed by the version reported by v.
func WithStatsCache(cache StatsCache, v Versioner) ReportOption {
	return func(s *ReportService) {
		if cache != nil && v != nil {
			s.cache = cache
			s.versioner = v
		}
	}
}

// WithReportLogger sets the base logger used when the context carries none.
func WithReportLogger(logger *slog.Logger) ReportOption {
	return func(s *ReportService) {
		s.logger = defaultLogger(logger)
	}
}

// ReportService aggregates bookings into summary statistics.
type ReportService struct {
	bookings   BookingLister
	users      UserLister
	rooms      RoomLister
	now        func() time.Time
	topUsers   int
	windowDays int
	cache      StatsCache
	versioner  Versioner
	logger     *slog.Logger
}

// NewReportService wires dependencies for the report service.
func NewReportService(bookings BookingLister, users UserLister, rooms RoomLister, now func() time.Time, opts ...ReportOption) *ReportService {
	if now == nil {
		now = time.Now
	}
	s := &ReportService{
		bookings:   bookings,
		users:      users,
		rooms:      rooms,
		now:        now,
		topUsers:   DefaultTopUsers,
		windowDays: DefaultTrendWindowDays,
		logger:     defaultLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeStats counts bookings by status and room, ranks users by booking
// volume and compares the current trend window with the previous one.
func (s *ReportService) ComputeStats(ctx context.Context) (stats Stats, err error) {
	if s == nil || s.bookings == nil || s.users == nil || s.rooms == nil {
		err = fmt.Errorf("report service not configured")
		return
	}

	today := s.now().Format(DateLayout)
	logger := serviceLogger(ctx, s.logger, "ReportService", "ComputeStats", "date", today)

	var key string
	if s.cache != nil {
		key = fmt.Sprintf("stats:v%d:%s:w%d:n%d", s.versioner.Version(), today, s.windowDays, s.topUsers)
		cached, ok, cacheErr := s.cache.GetStats(ctx, key)
		switch {
		case cacheErr != nil:
			logger.WarnContext(ctx, "stats cache read failed", "error", cacheErr)
		case ok:
			logger.DebugContext(ctx, "stats served from cache", "key", key)
			return cached, nil
		}
	}

	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute stats", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "stats computed", "total", stats.Total)
	}()

	bookings, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return
	}
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return
	}

	stats = aggregate(bookings, users, rooms, s.topUsers)
	stats.Trends, err = computeTrends(bookings, today, s.windowDays)
	if err != nil {
		return
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetStats(ctx, key, stats); cacheErr != nil {
			logger.WarnContext(ctx, "stats cache write failed", "error", cacheErr)
		}
	}
	return
}

func aggregate(bookings []persistence.Booking, users []persistence.User, rooms []persistence.Room, topN int) Stats {
	stats := Stats{
		BookingsByRoom: make([]RoomCount, 0, len(rooms)),
		TopUsers:       []UserSummary{},
	}

	perRoom := make(map[int64]int, len(rooms))
	perUser := make(map[int64]*UserSummary, len(users))
	for _, b := range bookings {
		stats.Total++
		switch b.Status {
		case persistence.StatusPending:
			stats.Pending++
		case persistence.StatusApproved:
			stats.Approved++
		case persistence.StatusRejected:
			stats.Rejected++
		}
		perRoom[b.RoomID]++

		summary, ok := perUser[b.UserID]
		if !ok {
			summary = &UserSummary{ID: b.UserID}
			perUser[b.UserID] = summary
		}
		summary.TotalBookings++
		switch b.Status {
		case persistence.StatusApproved:
			summary.Approved++
		case persistence.StatusRejected:
			summary.Rejected++
		}
	}

	for _, room := range rooms {
		stats.BookingsByRoom = append(stats.BookingsByRoom, RoomCount{
			RoomID:   room.ID,
			RoomName: room.Name,
			Count:    perRoom[room.ID],
		})
	}

	for _, user := range users {
		summary, ok := perUser[user.ID]
		if !ok {
			continue
		}
		summary.Email = user.Email
		summary.Role = user.Role
		stats.TopUsers = append(stats.TopUsers, *summary)
	}
	sort.SliceStable(stats.TopUsers, func(i, j int) bool {
		return stats.TopUsers[i].TotalBookings > stats.TopUsers[j].TotalBookings
	})
	if len(stats.TopUsers) > topN {
		stats.TopUsers = stats.TopUsers[:topN]
	}
	return stats
}

type windowCounts struct {
	total    int
	approved int
	rejected int
}

func countWindow(bookings []persistence.Booking, from, to string) windowCounts {
	filter := persistence.BookingFilter{DateFrom: &from, DateTo: &to}
	var c windowCounts
	for _, b := range bookings {
		if !filter.Matches(b) {
			continue
		}
		c.total++
		switch b.Status {
		case persistence.StatusApproved:
			c.approved++
		case persistence.StatusRejected:
			c.rejected++
		}
	}
	return c
}

// computeTrends compares the windowDays ending on today with the windowDays before them.
func computeTrends(bookings []persistence.Booking, today string, windowDays int) (Trends, error) {
	end, err := time.Parse(DateLayout, today)
	if err != nil {
		return Trends{}, fmt.Errorf("parse reference date: %w", err)
	}
	currentFrom := end.AddDate(0, 0, -(windowDays - 1))
	previousTo := currentFrom.AddDate(0, 0, -1)
	previousFrom := previousTo.AddDate(0, 0, -(windowDays - 1))

	t := Trends{
		Computed:     true,
		WindowDays:   windowDays,
		CurrentFrom:  currentFrom.Format(DateLayout),
		CurrentTo:    today,
		PreviousFrom: previousFrom.Format(DateLayout),
		PreviousTo:   previousTo.Format(DateLayout),
	}
	current := countWindow(bookings, t.CurrentFrom, t.CurrentTo)
	previous := countWindow(bookings, t.PreviousFrom, t.PreviousTo)

	t.Total = percentChange(previous.total, current.total)
	t.Approved = percentChange(previous.approved, current.approved)
	t.Rejected = percentChange(previous.rejected, current.rejected)
	return t, nil
}

// percentChange returns the change from previous to current in percent,
// rounded to one decimal. Growth from zero counts as 100.
func percentChange(previous, current int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	delta := float64(current-previous) / float64(previous) * 100
	return math.Round(delta*10) / 10
}
