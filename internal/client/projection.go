package client

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"roomstatus-backend/internal/model"
	"roomstatus-backend/internal/ws"
)

// Projection is a client-side view of server state, keyed by room number.
// It holds two layers: the authoritative layer, rebuilt from snapshot pulls
// and updated last-event-wins from the live channel, and a provisional
// overlay of optimistic local updates. A provisional entry is confirmed
// (removed) by the next authoritative event for its room and reverts on its
// own once the TTL elapses without confirmation.
type Projection struct {
	mu          sync.RWMutex
	rooms       map[int]model.RoomRecord
	provisional *cache.Cache
}

// NewProjection creates an empty projection whose provisional entries expire
// after ttl.
func NewProjection(ttl time.Duration) *Projection {
	return &Projection{
		rooms:       make(map[int]model.RoomRecord),
		provisional: cache.New(ttl, time.Minute),
	}
}

// ReplaceAll rebuilds the authoritative layer entirely from a snapshot.
// Cached state from before a reconnect gap is never trusted, so provisional
// entries are flushed too.
func (p *Projection) ReplaceAll(recs []model.RoomRecord) {
	fresh := make(map[int]model.RoomRecord, len(recs))
	for _, r := range recs {
		fresh[r.RoomNumber] = r
	}

	p.mu.Lock()
	p.rooms = fresh
	p.mu.Unlock()
	p.provisional.Flush()
}

// Apply folds one live event into the authoritative layer, last-event-wins.
// Any provisional entry for the event's room is considered confirmed.
func (p *Projection) Apply(ev ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case ws.EventLogsCleared:
		p.rooms = make(map[int]model.RoomRecord)
		p.provisional.Flush()
		return

	case ws.EventRoomUpdate:
		rec, ok := p.rooms[ev.Room]
		if !ok {
			rec = model.NewRoomRecord(ev.Room)
		}
		rec.Status = ev.Status
		p.rooms[ev.Room] = rec

	case ws.EventRoomReset:
		rec, ok := p.rooms[ev.Room]
		if !ok {
			rec = model.NewRoomRecord(ev.Room)
		}
		rec.Status = model.StatusAvailable
		rec.StartTime = nil
		rec.StartedBy = nil
		rec.FinishTime = nil
		rec.FinishedBy = nil
		p.rooms[ev.Room] = rec

	case ws.EventDNDUpdate:
		rec, ok := p.rooms[ev.Room]
		if !ok {
			rec = model.NewRoomRecord(ev.Room)
		}
		if ev.Active != nil {
			rec.DNDActive = *ev.Active
		}
		p.rooms[ev.Room] = rec
	}

	p.provisional.Delete(provKey(ev.Room))
}

// MarkProvisional records an optimistic local status for a room. The UI can
// render it immediately; it never leaks into the authoritative layer.
func (p *Projection) MarkProvisional(room int, status string) {
	p.provisional.SetDefault(provKey(room), status)
}

// Room returns the current view of one room with the provisional overlay
// applied. The boolean reports whether anything is known about the room.
func (p *Projection) Room(room int) (model.RoomRecord, bool) {
	p.mu.RLock()
	rec, ok := p.rooms[room]
	p.mu.RUnlock()

	if v, found := p.provisional.Get(provKey(room)); found {
		if !ok {
			rec = model.NewRoomRecord(room)
			ok = true
		}
		rec.Status = v.(string)
	}
	return rec, ok
}

// Rooms returns the full view sorted by room number, provisional overlay
// applied.
func (p *Projection) Rooms() []model.RoomRecord {
	p.mu.RLock()
	out := make([]model.RoomRecord, 0, len(p.rooms))
	for _, r := range p.rooms {
		out = append(out, r)
	}
	p.mu.RUnlock()

	for i := range out {
		if v, found := p.provisional.Get(provKey(out[i].RoomNumber)); found {
			out[i].Status = v.(string)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNumber < out[j].RoomNumber })
	return out
}

// Len returns the number of rooms in the authoritative layer.
func (p *Projection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

func provKey(room int) string {
	return strconv.Itoa(room)
}
