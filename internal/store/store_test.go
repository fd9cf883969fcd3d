package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"roomstatus-backend/internal/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.RoomRecord{}))
	return NewGormStore(db)
}

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return NewGormStore(gormDB), mock
}

func TestUpsertKeepsOneRecordPerRoom(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	actor := "alice"
	first := model.RoomRecord{RoomNumber: 7, Status: model.StatusInProgress, StartTime: &now, StartedBy: &actor}
	require.NoError(t, s.Upsert(ctx, &first))

	// Upserting the same room replaces the record instead of duplicating it.
	second := model.RoomRecord{RoomNumber: 7, Status: model.StatusAvailable, DNDActive: true}
	require.NoError(t, s.Upsert(ctx, &second))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.StatusAvailable, all[0].Status)
	assert.Nil(t, all[0].StartTime)
	assert.Nil(t, all[0].StartedBy)
	assert.True(t, all[0].DNDActive)
}

func TestFindRoomMissingReturnsNil(t *testing.T) {
	s := newSQLiteStore(t)

	rec, err := s.FindRoom(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFindAllOrdersByRoomNumber(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for _, room := range []int{9, 3, 6} {
		rec := model.NewRoomRecord(room)
		require.NoError(t, s.Upsert(ctx, &rec))
	}

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].RoomNumber)
	assert.Equal(t, 6, all[1].RoomNumber)
	assert.Equal(t, 9, all[2].RoomNumber)
}

func TestDeleteAll(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for _, room := range []int{1, 2, 3} {
		rec := model.NewRoomRecord(room)
		require.NoError(t, s.Upsert(ctx, &rec))
	}

	require.NoError(t, s.DeleteAll(ctx))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreFailuresAreRetryable(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT (.+) FROM "room_records"`).
		WillReturnError(errors.New("connection refused"))

	_, err := s.FindAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	mock.ExpectQuery(`SELECT (.+) FROM "room_records"`).
		WillReturnError(errors.New("connection refused"))

	_, err = s.FindRoom(ctx, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}
