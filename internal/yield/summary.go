package yield

// Summary is the externally visible yield state of one acquisition run.
// It is a plain value; copies never alias the accumulator that produced them.
type Summary struct {
	ReadCount int64 `json:"read_count"`

	// Recomputed on every qualifying tick, not accumulated.
	FractionBasecalled float64 `json:"fraction_basecalled"`
	FractionSkipped    float64 `json:"fraction_skipped"`

	BasecalledPassReadCount    int64 `json:"basecalled_pass_read_count"`
	BasecalledFailReadCount    int64 `json:"basecalled_fail_read_count"`
	BasecalledSkippedReadCount int64 `json:"basecalled_skipped_read_count"`
	BasecalledPassBases        int64 `json:"basecalled_pass_bases"`
	// BasecalledFailBases holds the contribution of the latest r==91 tick only.
	BasecalledFailBases int64 `json:"basecalled_fail_bases"`
	BasecalledSamples   int64 `json:"basecalled_samples"`
	SelectedRawSamples  int64 `json:"selected_raw_samples"`

	SelectedEvents         int64 `json:"selected_events"`
	EstimatedSelectedBases int64 `json:"estimated_selected_bases"`

	AlignmentMatches    int64   `json:"alignment_matches"`
	AlignmentMismatches int64   `json:"alignment_mismatches"`
	AlignmentInsertions int64   `json:"alignment_insertions"`
	AlignmentDeletions  int64   `json:"alignment_deletions"`
	AlignmentCoverage   float64 `json:"alignment_coverage"`
}

// Monotone returns the fields that never decrease across ticks, keyed by
// their wire name. Useful for assertions and metrics export.
func (s Summary) Monotone() map[string]int64 {
	return map[string]int64{
		"read_count":                    s.ReadCount,
		"basecalled_pass_read_count":    s.BasecalledPassReadCount,
		"basecalled_fail_read_count":    s.BasecalledFailReadCount,
		"basecalled_skipped_read_count": s.BasecalledSkippedReadCount,
		"basecalled_pass_bases":         s.BasecalledPassBases,
		"basecalled_fail_bases":         s.BasecalledFailBases,
		"selected_events":               s.SelectedEvents,
		"estimated_selected_bases":      s.EstimatedSelectedBases,
		"alignment_matches":             s.AlignmentMatches,
		"alignment_mismatches":          s.AlignmentMismatches,
		"alignment_insertions":          s.AlignmentInsertions,
		"alignment_deletions":           s.AlignmentDeletions,
	}
}
