// Package events announces booking mutations to interested consumers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-reservations/internal/persistence"
)

// Type names a booking lifecycle event.
type Type string

const (
	// TypeBookingCreated is published after a booking is stored.
	TypeBookingCreated Type = "booking.created"
	// TypeBookingStatusChanged is published after a status update and carries the replaced status.
	TypeBookingStatusChanged Type = "booking.status_changed"
)

// BookingEvent is the message body published for every booking mutation.
type BookingEvent struct {
	ID         string             `json:"id"`
	Type       Type               `json:"type"`
	BookingID  int64              `json:"bookingId"`
	RoomID     int64              `json:"roomId"`
	UserID     int64              `json:"userId"`
	Date       string             `json:"date"`
	StartTime  string             `json:"startTime"`
	EndTime    string             `json:"endTime"`
	Status     persistence.Status `json:"status"`
	Previous   persistence.Status `json:"previousStatus,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// NewBookingEvent snapshots booking into an event with a fresh id.
func NewBookingEvent(eventType Type, booking persistence.Booking, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		RoomID:     booking.RoomID,
		UserID:     booking.UserID,
		Date:       booking.Date,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Status:     booking.Status,
		OccurredAt: occurredAt.UTC(),
	}
}

// Publisher delivers booking events.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }

// Recorder keeps published events in memory. It is meant for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []BookingEvent
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BookingEvent(nil), r.events...)
}
