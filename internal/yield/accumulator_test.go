package yield

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickAll(t *testing.T, a *Accumulator, draws ...int) {
	t.Helper()
	for _, r := range draws {
		require.NoError(t, a.Tick(r))
	}
}

func TestTick_ExampleScenario(t *testing.T) {
	var a Accumulator

	tickAll(t, &a, 95)
	s := a.Snapshot()
	assert.Equal(t, int64(1), s.ReadCount)
	assert.InDelta(t, 95.0/101.0, s.FractionBasecalled, 1e-12)
	assert.InDelta(t, 6.0/101.0, s.FractionSkipped, 1e-12)
	assert.Equal(t, int64(95*101), s.SelectedEvents)
	assert.Equal(t, int64(95*101), s.EstimatedSelectedBases)
	assert.Equal(t, int64(95*101), s.AlignmentMatches)
	assert.Equal(t, int64(1), s.BasecalledPassReadCount)
	assert.Equal(t, int64(95*101), s.BasecalledPassBases)
	assert.InDelta(t, 0.05, s.AlignmentCoverage, 1e-9)

	tickAll(t, &a, 91)
	s = a.Snapshot()
	assert.Equal(t, int64(2), s.ReadCount)
	assert.Equal(t, int64(1), s.BasecalledFailReadCount)
	assert.Equal(t, int64(91*101), s.BasecalledFailBases)
	assert.Equal(t, int64(91*11), s.AlignmentMismatches)
	assert.InDelta(t, 0.10, s.AlignmentCoverage, 1e-9)
	// 91 is below the pass threshold
	assert.Equal(t, int64(1), s.BasecalledPassReadCount)

	tickAll(t, &a, 93)
	s = a.Snapshot()
	assert.Equal(t, int64(3), s.ReadCount)
	assert.Equal(t, int64(2), s.BasecalledPassReadCount)
	assert.Equal(t, int64(95*101+93*101), s.BasecalledPassBases)
	assert.Equal(t, int64(93*11), s.AlignmentDeletions)
	assert.InDelta(t, 0.15, s.AlignmentCoverage, 1e-9)
	// 93 is not above the match threshold
	assert.Equal(t, int64(95*101), s.AlignmentMatches)
	assert.Equal(t, uint64(3), a.Ticks())
}

func TestTick_LowDrawOnlyPinsSamples(t *testing.T) {
	var a Accumulator
	tickAll(t, &a, 0, 50, 90)
	want := Summary{BasecalledSamples: 1, SelectedRawSamples: 1}
	assert.Equal(t, want, a.Snapshot())
}

func TestTick_SkippedReadsAndInsertions(t *testing.T) {
	var a Accumulator
	tickAll(t, &a, 92, 92)
	s := a.Snapshot()
	assert.Equal(t, int64(4), s.BasecalledSkippedReadCount)
	assert.Equal(t, int64(2*92*11), s.AlignmentInsertions)
	assert.Equal(t, int64(0), s.BasecalledPassReadCount)
	assert.Equal(t, int64(2), s.ReadCount)
}

// The fail-bases field is overwritten rather than summed. Kept as-is for
// compatibility with existing clients even though pass-bases accumulates.
func TestTick_FailBasesOverwritten(t *testing.T) {
	var a Accumulator
	tickAll(t, &a, 91, 95, 91)
	s := a.Snapshot()
	assert.Equal(t, int64(91*101), s.BasecalledFailBases)
	assert.Equal(t, int64(2), s.BasecalledFailReadCount)
	assert.Equal(t, int64(2*91*11), s.AlignmentMismatches)
}

func TestTick_PinnedFieldsNeverExceedOne(t *testing.T) {
	var a Accumulator
	for i := 0; i < 500; i++ {
		require.NoError(t, a.Tick(i%MaxDraw))
		s := a.Snapshot()
		if s.BasecalledSamples != 1 || s.SelectedRawSamples != 1 {
			t.Fatalf("tick %d: pinned fields = %d/%d", i, s.BasecalledSamples, s.SelectedRawSamples)
		}
	}
}

func TestTick_CoverageBoundAndMonotone(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	var a Accumulator
	prev := a.Snapshot()
	for i := 0; i < 10000; i++ {
		require.NoError(t, a.Tick(rng.IntN(MaxDraw)))
		cur := a.Snapshot()
		if cur.AlignmentCoverage > MaxAlignmentCoverage {
			t.Fatalf("tick %d: coverage %v exceeds %v", i, cur.AlignmentCoverage, MaxAlignmentCoverage)
		}
		if cur.AlignmentCoverage < prev.AlignmentCoverage {
			t.Fatalf("tick %d: coverage decreased %v -> %v", i, prev.AlignmentCoverage, cur.AlignmentCoverage)
		}
		pm := prev.Monotone()
		for k, v := range cur.Monotone() {
			if v < pm[k] {
				t.Fatalf("tick %d: %s decreased %d -> %d", i, k, pm[k], v)
			}
		}
		if cur.FractionBasecalled < 0 || cur.FractionBasecalled > 1 || cur.FractionSkipped < 0 || cur.FractionSkipped > 1 {
			t.Fatalf("tick %d: fractions out of [0,1]: %v %v", i, cur.FractionBasecalled, cur.FractionSkipped)
		}
		prev = cur
	}
	assert.Equal(t, MaxAlignmentCoverage, prev.AlignmentCoverage)
}

func TestTick_CoverageCapsExactly(t *testing.T) {
	var a Accumulator
	for i := 0; i < 25; i++ {
		require.NoError(t, a.Tick(99))
	}
	assert.Equal(t, MaxAlignmentCoverage, a.Snapshot().AlignmentCoverage)
}

func TestTick_OutOfRange(t *testing.T) {
	var a Accumulator
	for _, r := range []int{-1, 100, 1000} {
		err := a.Tick(r)
		if !errors.Is(err, ErrDrawOutOfRange) {
			t.Fatalf("Tick(%d) err = %v, want ErrDrawOutOfRange", r, err)
		}
	}
	assert.Equal(t, Summary{}, a.Snapshot())
	assert.Equal(t, uint64(0), a.Ticks())
}

func TestSnapshot_IsCopy(t *testing.T) {
	var a Accumulator
	tickAll(t, &a, 99)
	s := a.Snapshot()
	s.ReadCount = 1000
	assert.Equal(t, int64(1), a.Snapshot().ReadCount)
}
