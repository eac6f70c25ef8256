package runstate

import (
	"sort"
	"sync"

	"github.com/loykin/acqsim/internal/yield"
)

// Observer is notified after every applied tick with the resulting snapshot.
// It runs under the run lock, so calls for one run arrive in tick order. It
// must not call back into the Store for the same run.
type Observer func(runID string, s yield.Summary)

// Store owns one yield.Accumulator per run id.
//
// Ticks on the same run are strictly serialized by a per-run mutex. The
// outer lock only guards the map, so runs never block each other while
// a tick is applied. Callers only ever see copies of accumulator state.
type Store struct {
	mu       sync.RWMutex
	runs     map[string]*runEntry
	drawer   Drawer
	observer Observer
}

type runEntry struct {
	mu  sync.Mutex
	acc yield.Accumulator
}

// RunStat describes one known run.
type RunStat struct {
	RunID string `json:"run_id"`
	Ticks uint64 `json:"ticks"`
}

type Option func(*Store)

// WithDrawer replaces the default random drawer.
func WithDrawer(d Drawer) Option {
	return func(s *Store) {
		if d != nil {
			s.drawer = d
		}
	}
}

// WithObserver registers a tick observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		runs:   make(map[string]*runEntry),
		drawer: NewRandomDrawer(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TickAndSnapshot draws one value and advances the named run, creating it
// with zeroed state if absent. This is not idempotent: every call moves the
// simulated run forward. An error is only possible if the configured Drawer
// returns a value outside the draw range, in which case nothing changes and
// no run is created.
func (s *Store) TickAndSnapshot(runID string) (yield.Summary, error) {
	return s.advance(runID, s.drawer.Draw())
}

// Apply advances the named run with an explicit draw instead of the Drawer.
func (s *Store) Apply(runID string, r int) (yield.Summary, error) {
	return s.advance(runID, r)
}

func (s *Store) advance(runID string, r int) (yield.Summary, error) {
	if err := yield.CheckDraw(r); err != nil {
		return yield.Summary{}, err
	}
	e := s.entry(runID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.acc.Tick(r); err != nil {
		return yield.Summary{}, err
	}
	snap := e.acc.Snapshot()
	s.notify(runID, snap)
	return snap, nil
}

// Peek returns the latest snapshot without advancing the run. The second
// result is false when the run has never been ticked; no entry is created.
func (s *Store) Peek(runID string) (yield.Summary, bool) {
	s.mu.RLock()
	e, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return yield.Summary{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acc.Snapshot(), true
}

// Runs lists known runs sorted by id.
func (s *Store) Runs() []RunStat {
	s.mu.RLock()
	ids := make([]string, 0, len(s.runs))
	entries := make([]*runEntry, 0, len(s.runs))
	for id, e := range s.runs {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]RunStat, len(ids))
	for i, e := range entries {
		e.mu.Lock()
		out[i] = RunStat{RunID: ids[i], Ticks: e.acc.Ticks()}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}

// Len reports the number of known runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *Store) entry(runID string) *runEntry {
	s.mu.RLock()
	e, ok := s.runs[runID]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.runs[runID]; ok {
		return e
	}
	e = &runEntry{}
	s.runs[runID] = e
	return e
}

func (s *Store) notify(runID string, snap yield.Summary) {
	if s.observer != nil {
		s.observer(runID, snap)
	}
}
