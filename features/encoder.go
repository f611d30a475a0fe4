package features

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/textmine/seqprep/datasets"
)

// TokenizeFunc is the external tokenizer boundary: raw text in, token ids
// out. Any preprocessing (lowercasing, whitespace normalization) happens
// inside the function handed to the encoder.
type TokenizeFunc func(text string) ([]int, error)

// Markers configures the sequence-boundary convention of the target model.
// Marker ids and reserved slot counts vary between model families, so none
// of them are hard-coded.
type Markers struct {
	StartID int
	SepID   int

	// Slots reserved for markers. BERT-style: 2 for a single sequence
	// ([start] a [sep]), 3 for a pair ([start] a [sep] b [sep]).
	SingleReserved int
	PairReserved   int
}

// DefaultMarkers returns the BERT-style convention with the given start and
// separator token ids.
func DefaultMarkers(startID, sepID int) Markers {
	return Markers{StartID: startID, SepID: sepID, SingleReserved: 2, PairReserved: 3}
}

// TokenizationError wraps a tokenizer failure. Tokenization is a pure
// function, so the failure is surfaced immediately and never retried.
type TokenizationError struct {
	GUID string
	Err  error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("tokenizing example %s: %v", e.GUID, e.Err)
}

func (e *TokenizationError) Unwrap() error { return e.Err }

// LabelNotFoundError reports a label string absent from the label
// vocabulary. Outside the test-split placeholder rules this is a
// vocabulary/data mismatch and must abort the run, never be coerced.
type LabelNotFoundError struct {
	GUID  string
	Label string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("example %s: label %q not in label vocabulary", e.GUID, e.Label)
}

// Encoder turns examples into Features.
type Encoder struct {
	MaxSeqLength int
	Markers      Markers

	// PadLeft pads sequences on the left instead of the right, the
	// convention of models that attend to the sequence tail.
	PadLeft bool
	PadID   int

	// Regression parses labels as float targets instead of vocabulary ids.
	Regression bool

	// Decode, when set, renders token ids back to a string for the decoded
	// example dump. Diagnostic only.
	Decode func(ids []int) string

	// LogFirstN examples of a conversion are logged fully decoded.
	// Zero disables the dump.
	LogFirstN int
}

// Encode converts one entry into a Feature. Padding entries short-circuit
// before any tokenization and produce an all-zero feature with
// IsRealExample false.
func (e *Encoder) Encode(index int, entry datasets.Entry, labels []string, tok TokenizeFunc) (*Feature, error) {
	example, ok := entry.(*datasets.Example)
	if !ok {
		return e.paddingFeature(), nil
	}

	idsA, err := tok(example.TextA)
	if err != nil {
		return nil, &TokenizationError{GUID: example.GUID, Err: err}
	}
	var idsB []int
	if example.TextB != nil {
		idsB, err = tok(*example.TextB)
		if err != nil {
			return nil, &TokenizationError{GUID: example.GUID, Err: err}
		}
	}

	if example.TextB != nil {
		budget := e.MaxSeqLength - e.Markers.PairReserved
		idsA, idsB = truncatePair(idsA, idsB, budget)
	} else {
		budget := e.MaxSeqLength - e.Markers.SingleReserved
		if len(idsA) > budget {
			idsA = idsA[:budget]
		}
	}

	tokens := make([]int64, 0, e.MaxSeqLength)
	segments := make([]int64, 0, e.MaxSeqLength)

	tokens = append(tokens, int64(e.Markers.StartID))
	segments = append(segments, 0)
	for _, id := range idsA {
		tokens = append(tokens, int64(id))
		segments = append(segments, 0)
	}
	tokens = append(tokens, int64(e.Markers.SepID))
	segments = append(segments, 0)
	if example.TextB != nil {
		for _, id := range idsB {
			tokens = append(tokens, int64(id))
			segments = append(segments, 1)
		}
		tokens = append(tokens, int64(e.Markers.SepID))
		segments = append(segments, 1)
	}

	real := len(tokens)
	mask := make([]float32, real)
	for i := range mask {
		mask[i] = 1
	}
	tokens, mask, segments = e.pad(tokens, mask, segments)

	feature := &Feature{
		InputIDs:      tokens,
		InputMask:     mask,
		SegmentIDs:    segments,
		IsRealExample: true,
	}
	if err := e.assignLabel(feature, example, labels); err != nil {
		return nil, err
	}

	if index < e.LogFirstN {
		e.logDecoded(index, example, feature, real)
	}
	return feature, nil
}

func (e *Encoder) paddingFeature() *Feature {
	return &Feature{
		InputIDs:      make([]int64, e.MaxSeqLength),
		InputMask:     make([]float32, e.MaxSeqLength),
		SegmentIDs:    make([]int64, e.MaxSeqLength),
		IsRealExample: false,
	}
}

// truncatePair removes one token at a time from the longer sequence until
// the pair fits the budget, balancing truncation loss between both sides.
// On a tie the second sequence loses a token.
func truncatePair(a, b []int, budget int) ([]int, []int) {
	for len(a)+len(b) > budget {
		if len(a) > len(b) {
			a = a[:len(a)-1]
		} else {
			b = b[:len(b)-1]
		}
	}
	return a, b
}

func (e *Encoder) pad(tokens []int64, mask []float32, segments []int64) ([]int64, []float32, []int64) {
	padLen := e.MaxSeqLength - len(tokens)
	if padLen <= 0 {
		return tokens, mask, segments
	}
	padTokens := make([]int64, padLen)
	for i := range padTokens {
		padTokens[i] = int64(e.PadID)
	}
	padMask := make([]float32, padLen)
	padSegments := make([]int64, padLen)

	if e.PadLeft {
		return append(padTokens, tokens...),
			append(padMask, mask...),
			append(padSegments, segments...)
	}
	return append(tokens, padTokens...),
		append(mask, padMask...),
		append(segments, padSegments...)
}

func (e *Encoder) assignLabel(feature *Feature, example *datasets.Example, labels []string) error {
	if e.Regression {
		if example.Label == nil {
			// Withheld test label: neutral placeholder, ignored by split-aware
			// metric code downstream.
			feature.LabelValue = 0
			return nil
		}
		value, err := strconv.ParseFloat(*example.Label, 32)
		if err != nil {
			return fmt.Errorf("example %s: regression label %q: %w", example.GUID, *example.Label, err)
		}
		feature.LabelValue = float32(value)
		return nil
	}

	if example.Label == nil {
		feature.LabelID = 0
		return nil
	}
	id := slices.Index(labels, *example.Label)
	if id < 0 {
		return &LabelNotFoundError{GUID: example.GUID, Label: *example.Label}
	}
	feature.LabelID = int64(id)
	return nil
}

func (e *Encoder) logDecoded(index int, example *datasets.Example, feature *Feature, realLen int) {
	event := log.Debug().Str("guid", example.GUID).Int("index", index).
		Ints64("input_ids", feature.InputIDs).
		Floats32("input_mask", feature.InputMask).
		Ints64("segment_ids", feature.SegmentIDs).
		Int("real_positions", realLen).
		Int64("label_id", feature.LabelID)
	if e.Regression {
		event = event.Float32("label_value", feature.LabelValue)
	}
	if e.Decode != nil {
		ids := make([]int, len(feature.InputIDs))
		for i, id := range feature.InputIDs {
			ids[i] = int(id)
		}
		event = event.Str("decoded", e.Decode(ids))
	}
	event.Msg("decoded example")
}
