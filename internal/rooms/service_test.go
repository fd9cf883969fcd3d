package rooms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"roomstatus-backend/internal/model"
	"roomstatus-backend/internal/store"
	"roomstatus-backend/internal/ws"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []ws.Event
}

func (f *fakeBroadcaster) Broadcast(ev ws.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeBroadcaster) all() []ws.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ws.Event(nil), f.events...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

type fakeDispatcher struct {
	mu    sync.Mutex
	rooms []int
}

func (f *fakeDispatcher) Dispatch(room int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
}

func newTestService(t *testing.T) (*Service, *fakeBroadcaster, *fakeNotifier, *fakeDispatcher) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.RoomRecord{}))

	bcast := &fakeBroadcaster{}
	notifier := &fakeNotifier{}
	dispatcher := &fakeDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(store.NewGormStore(db), bcast, notifier, dispatcher, logger)
	return svc, bcast, notifier, dispatcher
}

func TestCleaningLifecycle(t *testing.T) {
	svc, bcast, notifier, dispatcher := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 8, 1, 9, 45, 0, 0, time.UTC)

	// Alice starts cleaning room 7.
	rec, err := svc.Start(ctx, 7, "alice", t1)
	require.NoError(t, err)
	assert.Equal(t, 7, rec.RoomNumber)
	assert.Equal(t, model.StatusInProgress, rec.Status)
	require.NotNil(t, rec.StartTime)
	assert.Equal(t, t1.Unix(), rec.StartTime.Unix())
	require.NotNil(t, rec.StartedBy)
	assert.Equal(t, "alice", *rec.StartedBy)
	assert.Nil(t, rec.FinishTime)
	assert.Nil(t, rec.FinishedBy)

	// Bob tries to start the same room while it is mid-clean.
	_, err = svc.Start(ctx, 7, "bob", t1.Add(time.Minute))
	require.ErrorIs(t, err, ErrConflict)

	// The record is unchanged by the rejected start.
	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "alice", *snapshot[0].StartedBy)
	assert.Equal(t, model.StatusInProgress, snapshot[0].Status)

	// Bob finishes the clean that alice started.
	rec, err = svc.Finish(ctx, 7, "bob", t3)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, rec.Status)
	assert.Equal(t, "alice", *rec.StartedBy)
	assert.Equal(t, t1.Unix(), rec.StartTime.Unix())
	assert.Equal(t, "bob", *rec.FinishedBy)
	assert.Equal(t, t3.Unix(), rec.FinishTime.Unix())

	// Reset wipes the cleaning history.
	rec, err = svc.Reset(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, rec.Status)
	assert.Nil(t, rec.StartTime)
	assert.Nil(t, rec.StartedBy)
	assert.Nil(t, rec.FinishTime)
	assert.Nil(t, rec.FinishedBy)

	// Still exactly one record for the room.
	snapshot, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)

	// Broadcasts were emitted in commit order.
	events := bcast.all()
	require.Len(t, events, 3)
	assert.Equal(t, ws.EventRoomUpdate, events[0].Type)
	assert.Equal(t, model.StatusInProgress, events[0].Status)
	assert.Equal(t, model.StatusAvailable, events[0].PreviousStatus)
	assert.Equal(t, ws.EventRoomUpdate, events[1].Type)
	assert.Equal(t, model.StatusFinished, events[1].Status)
	assert.Equal(t, model.StatusInProgress, events[1].PreviousStatus)
	assert.Equal(t, ws.EventRoomReset, events[2].Type)
	assert.Equal(t, model.StatusAvailable, events[2].Status)

	// The finish alerted the sink and queued a push, once each.
	assert.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "Room 7")
	assert.Equal(t, []int{7}, dispatcher.rooms)
}

func TestFinishRequiresOpenRecord(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Finish(ctx, 12, "alice", time.Now().UTC())
	require.ErrorIs(t, err, ErrNotFound)

	// A finished room has no open record either.
	_, err = svc.Start(ctx, 12, "alice", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Finish(ctx, 12, "bob", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Finish(ctx, 12, "carol", time.Now().UTC())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFinishAfterResetFallsBackToAvailable(t *testing.T) {
	svc, bcast, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, 3, "alice", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Reset(ctx, 3)
	require.NoError(t, err)

	// The record exists with a null finish time, so finish succeeds; with no
	// start time the previous status falls back to available.
	rec, err := svc.Finish(ctx, 3, "bob", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, rec.Status)
	assert.Nil(t, rec.StartTime)

	events := bcast.all()
	last := events[len(events)-1]
	assert.Equal(t, model.StatusAvailable, last.PreviousStatus)
}

func TestResetUnknownRoom(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Reset(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartAgainAfterFinish(t *testing.T) {
	svc, bcast, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, 5, "alice", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Finish(ctx, 5, "alice", time.Now().UTC())
	require.NoError(t, err)

	rec, err := svc.Start(ctx, 5, "bob", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, rec.Status)
	assert.Equal(t, "bob", *rec.StartedBy)
	assert.Nil(t, rec.FinishTime)
	assert.Nil(t, rec.FinishedBy)

	events := bcast.all()
	last := events[len(events)-1]
	assert.Equal(t, model.StatusFinished, last.PreviousStatus)
}

func TestDNDIsOrthogonal(t *testing.T) {
	svc, bcast, _, _ := newTestService(t)
	ctx := context.Background()

	// DND on a room nobody has touched creates a default record.
	rec, err := svc.SetDND(ctx, 21, true)
	require.NoError(t, err)
	assert.True(t, rec.DNDActive)
	assert.Equal(t, model.StatusAvailable, rec.Status)

	// Cleaning transitions carry the flag through untouched.
	rec, err = svc.Start(ctx, 21, "alice", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, rec.DNDActive)

	rec, err = svc.Finish(ctx, 21, "alice", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, rec.DNDActive)

	rec, err = svc.Reset(ctx, 21)
	require.NoError(t, err)
	assert.True(t, rec.DNDActive)

	// Toggling DND never touches cleaning fields.
	_, err = svc.Start(ctx, 21, "bob", time.Now().UTC())
	require.NoError(t, err)
	rec, err = svc.SetDND(ctx, 21, false)
	require.NoError(t, err)
	assert.False(t, rec.DNDActive)
	assert.Equal(t, model.StatusInProgress, rec.Status)
	assert.Equal(t, "bob", *rec.StartedBy)

	// Idempotent: repeating the same value commits and broadcasts again but
	// changes nothing.
	rec, err = svc.SetDND(ctx, 21, false)
	require.NoError(t, err)
	assert.False(t, rec.DNDActive)
	assert.Equal(t, model.StatusInProgress, rec.Status)

	var dndEvents int
	for _, ev := range bcast.all() {
		if ev.Type == ws.EventDNDUpdate {
			dndEvents++
			require.NotNil(t, ev.Active)
		}
	}
	assert.Equal(t, 3, dndEvents)
}

func TestClearAll(t *testing.T) {
	svc, bcast, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, 1, "alice", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.Start(ctx, 2, "bob", time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.SetDND(ctx, 3, true)
	require.NoError(t, err)

	require.NoError(t, svc.ClearAll(ctx))

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot)

	events := bcast.all()
	assert.Equal(t, ws.EventLogsCleared, events[len(events)-1].Type)
}

func TestSnapshotOrdering(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, room := range []int{30, 10, 20} {
		_, err := svc.SetDND(ctx, room, true)
		require.NoError(t, err)
	}

	snapshot, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, 10, snapshot[0].RoomNumber)
	assert.Equal(t, 20, snapshot[1].RoomNumber)
	assert.Equal(t, 30, snapshot[2].RoomNumber)
}
