package features

import "github.com/textmine/seqprep/datasets"

// AlignToBatch appends padding sentinels to entries until the length is a
// multiple of batchSize. The original entries are an untouched prefix;
// sentinels are only ever appended. Fixed-shape batch consumers need this so
// the final batch is complete instead of silently dropped.
//
// Whether a training split aligns or drops its final partial batch is a
// run-configuration decision; the aligner itself is policy-free.
func AlignToBatch(entries []datasets.Entry, batchSize int) []datasets.Entry {
	if batchSize <= 0 {
		return entries
	}
	aligned := entries
	for len(aligned)%batchSize != 0 {
		aligned = append(aligned, datasets.PaddingExample{})
	}
	return aligned
}
