package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roomstatus-backend/internal/model"
)

// ErrUnavailable marks a failure to reach the backing store. Callers treat
// it as retryable; mutations fail fast rather than queue while the store is
// unreachable.
var ErrUnavailable = errors.New("room store unavailable")

// Store defines the interface for all room record persistence.
type Store interface {
	// FindAll returns every room record, ordered by room number.
	FindAll(ctx context.Context) ([]model.RoomRecord, error)
	// FindRoom returns the record for a room, or nil if none exists.
	FindRoom(ctx context.Context, room int) (*model.RoomRecord, error)
	// Upsert atomically inserts or replaces the record for rec.RoomNumber.
	Upsert(ctx context.Context, rec *model.RoomRecord) error
	// DeleteAll removes every room record.
	DeleteAll(ctx context.Context) error
	// DB exposes the underlying handle for collaborators that manage their
	// own tables (push subscriptions).
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) FindAll(ctx context.Context) ([]model.RoomRecord, error) {
	var records []model.RoomRecord
	if err := s.db.WithContext(ctx).Order("room_number").Find(&records).Error; err != nil {
		return nil, unavailable("find all room records", err)
	}
	return records, nil
}

func (s *gormStore) FindRoom(ctx context.Context, room int) (*model.RoomRecord, error) {
	var rec model.RoomRecord
	err := s.db.WithContext(ctx).First(&rec, "room_number = ?", room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("find room %d", room), err)
	}
	return &rec, nil
}

// Upsert writes the full record in one statement so readers never observe a
// partially applied mutation.
func (s *gormStore) Upsert(ctx context.Context, rec *model.RoomRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "start_time", "started_by", "finish_time", "finished_by", "dnd_active", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return unavailable(fmt.Sprintf("upsert room %d", rec.RoomNumber), err)
	}
	return nil
}

func (s *gormStore) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.RoomRecord{}).Error; err != nil {
		return unavailable("delete all room records", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
