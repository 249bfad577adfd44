package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/example/room-reservations/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var captured []string
	handler := &recordingHandler{messages: &captured}
	ctxLogger := slog.New(handler)
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), "BookingService", "CreateBooking").Info("hello")
	if len(captured) != 1 || captured[0] != "hello" {
		t.Fatalf("expected context logger to receive the record, got %v", captured)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                    nil,
		"not_found":           ErrNotFound,
		"invalid_reference":   &InvalidReferenceError{Field: "userId", ID: 1},
		"dangling_reference":  ErrDanglingReference,
		"already_exists":      ErrAlreadyExists,
		"conflict":            &ConflictError{},
		"invalid_credentials": ErrInvalidCredentials,
		"validation":          &ValidationError{FieldErrors: map[string]string{"x": "y"}},
		"unexpected":          errors.New("boom"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

type recordingHandler struct {
	messages *[]string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	*h.messages = append(*h.messages, record.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }
