package runstate

import (
	"math/rand/v2"
	"sync"

	"github.com/loykin/acqsim/internal/yield"
)

// Drawer supplies the per-tick random draw. Implementations must return
// values in [yield.MinDraw, yield.MaxDraw) and be safe for concurrent use.
type Drawer interface {
	Draw() int
}

// DrawFunc adapts a plain function to Drawer.
type DrawFunc func() int

func (f DrawFunc) Draw() int { return f() }

// NewRandomDrawer draws from the runtime-seeded global generator.
func NewRandomDrawer() Drawer {
	return DrawFunc(func() int { return rand.IntN(yield.MaxDraw) })
}

type seededDrawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededDrawer returns a reproducible drawer. Two drawers built from the
// same seed produce the same sequence.
func NewSeededDrawer(seed uint64) Drawer {
	return &seededDrawer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (d *seededDrawer) Draw() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.IntN(yield.MaxDraw)
}

// SequenceDrawer replays a fixed list of draws, wrapping around at the end.
// An empty sequence always draws 0.
type SequenceDrawer struct {
	mu    sync.Mutex
	draws []int
	next  int
}

func NewSequenceDrawer(draws ...int) *SequenceDrawer {
	return &SequenceDrawer{draws: append([]int(nil), draws...)}
}

func (d *SequenceDrawer) Draw() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.draws) == 0 {
		return 0
	}
	r := d.draws[d.next%len(d.draws)]
	d.next++
	return r
}
