package lifecycle

import (
	"sync"
	"time"

	"klinik/pkg/model"
)

// ledger keeps schedules this process applied until the backend snapshot
// shows them, so a concurrent request on the same doctor/day sees them.
type ledger struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
	ttl     time.Duration
	now     func() time.Time
}

type ledgerEntry struct {
	res     model.Reservation
	addedAt time.Time
}

func newLedger(ttl time.Duration, now func() time.Time) *ledger {
	return &ledger{entries: make(map[string]ledgerEntry), ttl: ttl, now: now}
}

func (l *ledger) record(res model.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[res.ID] = ledgerEntry{res: res, addedAt: l.now()}
}

// follow carries a later transition of id into its entry. The entry is dropped
// once the reservation no longer holds a slot.
func (l *ledger) follow(id string, status model.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[id]
	if !ok {
		return
	}
	if !status.RequiresSchedule() {
		delete(l.entries, id)
		return
	}
	entry.res.Status = status
	l.entries[id] = entry
}

// merge overlays ledger entries onto snapshot. Entries already reflected in
// the snapshot, or older than the ttl, are dropped.
func (l *ledger) merge(snapshot []model.Reservation) []model.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[string]int, len(snapshot))
	for i, r := range snapshot {
		byID[r.ID] = i
	}

	out := make([]model.Reservation, len(snapshot))
	copy(out, snapshot)

	now := l.now()
	for id, entry := range l.entries {
		if now.Sub(entry.addedAt) > l.ttl {
			delete(l.entries, id)
			continue
		}
		idx, ok := byID[id]
		if ok && sameSchedule(out[idx], entry.res) {
			delete(l.entries, id)
			continue
		}
		if ok {
			out[idx] = entry.res
		} else {
			out = append(out, entry.res)
		}
	}
	return out
}

func (l *ledger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func sameSchedule(a, b model.Reservation) bool {
	if a.DoctorID != b.DoctorID {
		return false
	}
	aStart, aEnd, aok := a.Interval()
	bStart, bEnd, bok := b.Interval()
	return aok == bok && aStart.Equal(bStart) && aEnd.Equal(bEnd)
}
