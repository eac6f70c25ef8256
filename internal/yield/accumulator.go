package yield

import (
	"errors"
	"fmt"
	"math"
)

// Draw bounds: every tick consumes one integer draw in [MinDraw, MaxDraw).
const (
	MinDraw = 0
	MaxDraw = 100
)

const (
	// MaxAlignmentCoverage is the hard ceiling for Summary.AlignmentCoverage.
	MaxAlignmentCoverage = 0.9
	coverageStep         = 0.05

	baseMultiplier      = 101
	alignmentMultiplier = 11
	fractionDenominator = 101.0
)

// ErrDrawOutOfRange is returned by Tick when the draw is outside [MinDraw, MaxDraw).
var ErrDrawOutOfRange = errors.New("draw out of range")

// CheckDraw reports ErrDrawOutOfRange when r is outside [MinDraw, MaxDraw).
func CheckDraw(r int) error {
	if r < MinDraw || r >= MaxDraw {
		return fmt.Errorf("%w: %d not in [%d,%d)", ErrDrawOutOfRange, r, MinDraw, MaxDraw)
	}
	return nil
}

// Accumulator holds the cumulative statistics of one run and advances them
// one tick at a time. It is not safe for concurrent use; callers serialize.
type Accumulator struct {
	s     Summary
	ticks uint64
}

// Tick applies the threshold rules for draw r. An out-of-range draw leaves
// the accumulator untouched.
func (a *Accumulator) Tick(r int) error {
	if err := CheckDraw(r); err != nil {
		return err
	}
	s := &a.s
	n := int64(r)

	if r > 90 {
		s.ReadCount++
		s.FractionBasecalled = float64(r) / fractionDenominator
		s.FractionSkipped = (fractionDenominator - float64(r)) / fractionDenominator
		s.SelectedEvents += n * baseMultiplier
		s.EstimatedSelectedBases += n * baseMultiplier
	}
	if r >= 93 {
		s.BasecalledPassReadCount++
		s.BasecalledPassBases += n * baseMultiplier
	}
	if r == 91 {
		s.BasecalledFailReadCount++
		// overwritten, unlike BasecalledPassBases
		s.BasecalledFailBases = n * baseMultiplier
	}
	if r == 92 {
		s.BasecalledSkippedReadCount += 2
	}

	s.BasecalledSamples = 1
	s.SelectedRawSamples = 1

	if r > 94 {
		s.AlignmentMatches += n * baseMultiplier
	}
	switch r {
	case 91:
		s.AlignmentMismatches += n * alignmentMultiplier
	case 92:
		s.AlignmentInsertions += n * alignmentMultiplier
	case 93:
		s.AlignmentDeletions += n * alignmentMultiplier
	}
	if r > 90 && s.AlignmentCoverage < MaxAlignmentCoverage {
		s.AlignmentCoverage = math.Min(s.AlignmentCoverage+coverageStep, MaxAlignmentCoverage)
	}

	a.ticks++
	return nil
}

// Snapshot returns a copy of the current state.
func (a *Accumulator) Snapshot() Summary { return a.s }

// Ticks reports how many draws have been applied.
func (a *Accumulator) Ticks() uint64 { return a.ticks }
