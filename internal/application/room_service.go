package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-reservations/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error)
	GetRoom(ctx context.Context, id int64) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
}

// RoomService validates and serves the room catalog.
type RoomService struct {
	rooms  RoomRepository
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided repository.
func NewRoomService(rooms RoomRepository) *RoomService {
	return NewRoomServiceWithLogger(rooms, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, logger *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (room persistence.Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	normalized := RoomInput{
		Name:     strings.TrimSpace(input.Name),
		Capacity: input.Capacity,
		Building: strings.TrimSpace(input.Building),
		Floor:    input.Floor,
	}
	logger := s.loggerWith(ctx, "CreateRoom", "room_name", normalized.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if vErr := validateStruct(normalized); vErr.HasErrors() {
		err = vErr
		return
	}

	room, err = s.rooms.CreateRoom(ctx, persistence.Room{
		Name:     normalized.Name,
		Capacity: normalized.Capacity,
		Building: normalized.Building,
		Floor:    normalized.Floor,
	})
	err = mapRepoError(err)
	return
}

// GetRoom returns the room with the given id.
func (s *RoomService) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return persistence.Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, id)
	return room, mapRepoError(err)
}

// ListRooms returns every room in insertion order.
func (s *RoomService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room repository not configured")
	}
	return s.rooms.ListRooms(ctx)
}
