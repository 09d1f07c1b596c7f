package lifecycle

import (
	"sync"
	"time"

	"klinik/pkg/model"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseFailed  Phase = "failed"
	PhaseApplied Phase = "applied"
)

// State is the last known outcome of a transition request for one reservation.
type State struct {
	Phase     Phase        `json:"phase"`
	Target    model.Status `json:"target,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

// tracker guards against re-entry per key and remembers the last outcome.
type tracker struct {
	mu     sync.Mutex
	states map[string]State
	now    func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	return &tracker{states: make(map[string]State), now: now}
}

// begin marks id pending. It returns false when a request for id is already
// outstanding.
func (t *tracker) begin(id string, target model.Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id].Phase == PhasePending {
		return false
	}
	t.states[id] = State{Phase: PhasePending, Target: target, UpdatedAt: t.now()}
	return true
}

func (t *tracker) fail(id string, target model.Status, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[id] = State{Phase: PhaseFailed, Target: target, Error: err.Error(), UpdatedAt: t.now()}
}

func (t *tracker) apply(id string, target model.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[id] = State{Phase: PhaseApplied, Target: target, UpdatedAt: t.now()}
}

func (t *tracker) get(id string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[id]; ok {
		return s
	}
	return State{Phase: PhaseIdle}
}
