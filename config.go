// Package seqprep prepares heterogeneous text-classification datasets for
// fine-tuning a pretrained sequence model: raw files in, fixed-shape feature
// containers out.
package seqprep

// Config carries every run-level setting. It is constructed once at process
// start and passed by pointer; no component reads ambient global state.
type Config struct {
	TaskName  string
	DataDir   string
	OutputDir string

	MaxSeqLength int

	TrainBatchSize   int
	EvalBatchSize    int
	PredictBatchSize int

	// ShuffleBuffer is the reader-side shuffle buffer for training
	// consumption.
	ShuffleBuffer int

	// NumPasses repeats the training examples before writing, so fixed-batch
	// consumers lose no data to remainder dropping across epochs.
	NumPasses int

	// OverwriteData forces container regeneration even when a container for
	// the same tokenizer/length/split already exists.
	OverwriteData bool

	// DropRemainder selects the training-split accommodation for fixed batch
	// shapes: true drops the final partial batch at consumption time, false
	// aligns the training split with padding examples like eval/predict.
	DropRemainder bool

	Lowercase bool
	PadLeft   bool

	// IntMask serializes the attention mask as int64 instead of float32.
	IntMask bool

	// StartToken and SepToken are the marker token strings resolved against
	// the tokenizer vocabulary.
	StartToken string
	SepToken   string

	// PrimaryMetric overrides the metric used to pick the best checkpoint.
	// Empty selects eval_accuracy, or eval_pearsonr for regression tasks.
	PrimaryMetric string

	// PredictThreshold shifts the decision boundary for two-class
	// prediction output.
	PredictThreshold float64
}

// DefaultConfig returns the standard fine-tuning defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxSeqLength:     128,
		TrainBatchSize:   8,
		EvalBatchSize:    128,
		PredictBatchSize: 128,
		ShuffleBuffer:    2048,
		NumPasses:        1,
		DropRemainder:    true,
		StartToken:       "[CLS]",
		SepToken:         "[SEP]",
	}
}
