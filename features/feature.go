// Package features converts canonical examples into fixed-length numeric
// features ready for model consumption. It owns the truncation/padding
// policy and is the only package that invokes the tokenizer.
package features

// Feature is the fixed-length encoding of one example. All three sequences
// have exactly the encoder's MaxSeqLength elements, for real and padding
// entries alike. LabelID carries the label index for classification tasks;
// LabelValue carries the raw target for regression tasks. Which of the two
// is serialized is decided by the record schema, not here.
type Feature struct {
	InputIDs      []int64
	InputMask     []float32
	SegmentIDs    []int64
	LabelID       int64
	LabelValue    float32
	IsRealExample bool
}
