package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roomstatus-backend/internal/metrics"
	"roomstatus-backend/internal/model"
	"roomstatus-backend/internal/store"
	"roomstatus-backend/internal/ws"
)

// Broadcaster fans a committed state change out to all connected sessions.
type Broadcaster interface {
	Broadcast(ev ws.Event)
}

// Notifier delivers a best-effort text alert. Implementations must never
// block the caller or surface delivery failures.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// PushDispatcher queues a web push job for a room without blocking.
type PushDispatcher interface {
	Dispatch(room int)
}

// Service is the room state machine. Every mutation commits against the
// store and then emits exactly one broadcast; the mutex serializes mutations
// so broadcast order equals commit order for every room.
type Service struct {
	store    store.Store
	bcast    Broadcaster
	notifier Notifier
	push     PushDispatcher
	log      *slog.Logger

	mu sync.Mutex
}

// NewService wires the state machine to its collaborators. push may be nil
// when web push is not configured.
func NewService(s store.Store, b Broadcaster, n Notifier, p PushDispatcher, logger *slog.Logger) *Service {
	return &Service{store: s, bcast: b, notifier: n, push: p, log: logger}
}

// Start begins cleaning a room. It fails with ErrConflict if the room is
// already mid-clean; otherwise it upserts an in_progress record with fresh
// start fields and cleared finish fields. The DND flag carries over.
func (s *Service) Start(ctx context.Context, room int, actor string, at time.Time) (*model.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.FindRoom(ctx, room)
	if err != nil {
		return nil, err
	}

	previous := model.StatusAvailable
	dnd := false
	if existing != nil {
		if existing.Status == model.StatusInProgress {
			return nil, fmt.Errorf("start room %d: %w", room, ErrConflict)
		}
		previous = existing.Status
		dnd = existing.DNDActive
	}

	rec := model.RoomRecord{
		RoomNumber: room,
		Status:     model.StatusInProgress,
		StartTime:  &at,
		StartedBy:  &actor,
		DNDActive:  dnd,
	}
	if err := s.store.Upsert(ctx, &rec); err != nil {
		return nil, err
	}

	metrics.Mutations.WithLabelValues("start").Inc()
	s.bcast.Broadcast(ws.RoomUpdate(room, model.StatusInProgress, previous))
	s.log.Info("room.start", "room", room, "actor", actor)
	return &rec, nil
}

// Finish completes cleaning a room. The precondition is an existing record
// with no finish time; start fields stay untouched. The previous status is
// in_progress when a start time is present, available otherwise.
func (s *Service) Finish(ctx context.Context, room int, actor string, at time.Time) (*model.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.FindRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.FinishTime != nil {
		return nil, fmt.Errorf("finish room %d: %w", room, ErrNotFound)
	}

	previous := model.StatusAvailable
	if rec.StartTime != nil {
		previous = model.StatusInProgress
	}

	rec.Status = model.StatusFinished
	rec.FinishTime = &at
	rec.FinishedBy = &actor
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	metrics.Mutations.WithLabelValues("finish").Inc()
	s.bcast.Broadcast(ws.RoomUpdate(room, model.StatusFinished, previous))
	s.notifier.Notify(ctx, fmt.Sprintf("Room %d is cleaned and ready (finished by %s)", room, actor))
	if s.push != nil {
		s.push.Dispatch(room)
	}
	s.log.Info("room.finish", "room", room, "actor", actor)
	return rec, nil
}

// Reset returns a room to available, clearing all start and finish fields.
// The DND flag is untouched. Unknown rooms fail with ErrNotFound.
func (s *Service) Reset(ctx context.Context, room int) (*model.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.FindRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("reset room %d: %w", room, ErrNotFound)
	}

	rec.Status = model.StatusAvailable
	rec.StartTime = nil
	rec.StartedBy = nil
	rec.FinishTime = nil
	rec.FinishedBy = nil
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	metrics.Mutations.WithLabelValues("reset").Inc()
	s.bcast.Broadcast(ws.RoomReset(room, model.StatusAvailable))
	s.log.Info("room.reset", "room", room)
	return rec, nil
}

// SetDND flips the do-not-disturb flag for a room, upserting a default
// record when none exists. Cleaning fields are never read or written, so
// the operation is idempotent and cannot fail a precondition.
func (s *Service) SetDND(ctx context.Context, room int, active bool) (*model.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.FindRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		fresh := model.NewRoomRecord(room)
		rec = &fresh
	}

	rec.DNDActive = active
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	metrics.Mutations.WithLabelValues("dnd").Inc()
	s.bcast.Broadcast(ws.DNDUpdate(room, active))
	s.log.Info("room.dnd", "room", room, "active", active)
	return rec, nil
}

// ClearAll deletes every room record and tells all sessions to reset their
// local caches to defaults.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteAll(ctx); err != nil {
		return err
	}

	metrics.Mutations.WithLabelValues("clear").Inc()
	s.bcast.Broadcast(ws.LogsCleared())
	s.log.Info("room.clear_all")
	return nil
}

// Snapshot returns the full authoritative state. It deliberately bypasses
// the mutation lock: upserts are single-statement, so a concurrent read
// never observes a torn record.
func (s *Service) Snapshot(ctx context.Context) ([]model.RoomRecord, error) {
	return s.store.FindAll(ctx)
}
