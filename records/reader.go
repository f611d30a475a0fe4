package records

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"

	"gorgonia.org/tensor"

	"github.com/textmine/seqprep/features"
	"github.com/textmine/seqprep/util/fileutil"
)

// DecodeError reports a corrupt or mis-declared record. Reading never skips
// past corruption: the error names the container and the record position and
// terminates the read.
type DecodeError struct {
	Path  string
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("container %s: record %d: %v", e.Path, e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reader decodes a container back into features. By default records come
// back in exact write order, once; training consumption opts into
// shuffled-with-buffer order and unbounded repetition explicitly.
type Reader struct {
	path   string
	schema Schema

	source io.ReadCloser
	br     *bufio.Reader
	index  int

	shuffleSize int
	rng         *rand.Rand
	buffer      []*features.Feature
	repeat      bool
	exhausted   bool
}

type ReaderOption func(*Reader)

// WithShuffle samples records through a buffer of the given size instead of
// preserving write order. The seed makes test runs reproducible.
func WithShuffle(bufferSize int, seed int64) ReaderOption {
	return func(r *Reader) {
		r.shuffleSize = bufferSize
		r.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRepeat restarts the container after the last record instead of
// returning io.EOF, for epoch-unbounded training consumption.
func WithRepeat() ReaderOption {
	return func(r *Reader) {
		r.repeat = true
	}
}

func NewReader(path string, schema Schema, opts ...ReaderOption) (*Reader, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	source, err := fileutil.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	reader := &Reader{
		path:   path,
		schema: schema,
		source: source,
		br:     bufio.NewReader(source),
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader, nil
}

// Next returns the next feature, or io.EOF when the container is exhausted
// and repetition is off.
func (r *Reader) Next() (*features.Feature, error) {
	if r.shuffleSize <= 0 {
		return r.nextSequential()
	}

	for len(r.buffer) < r.shuffleSize && !r.exhausted {
		feature, err := r.nextSequential()
		if err == io.EOF {
			r.exhausted = true
			break
		}
		if err != nil {
			return nil, err
		}
		r.buffer = append(r.buffer, feature)
	}
	if len(r.buffer) == 0 {
		return nil, io.EOF
	}
	i := r.rng.Intn(len(r.buffer))
	feature := r.buffer[i]
	r.buffer[i] = r.buffer[len(r.buffer)-1]
	r.buffer = r.buffer[:len(r.buffer)-1]
	return feature, nil
}

func (r *Reader) nextSequential() (*features.Feature, error) {
	var lengthBytes [8]byte
	if _, err := io.ReadFull(r.br, lengthBytes[:]); err != nil {
		if err == io.EOF {
			if !r.repeat {
				return nil, io.EOF
			}
			if rewindErr := r.rewind(); rewindErr != nil {
				return nil, rewindErr
			}
			if _, err := io.ReadFull(r.br, lengthBytes[:]); err != nil {
				return nil, &DecodeError{Path: r.path, Index: r.index, Err: err}
			}
		} else {
			return nil, &DecodeError{Path: r.path, Index: r.index, Err: err}
		}
	}

	var crcBytes [4]byte
	if _, err := io.ReadFull(r.br, crcBytes[:]); err != nil {
		return nil, &DecodeError{Path: r.path, Index: r.index, Err: fmt.Errorf("truncated length crc: %w", err)}
	}
	if binary.LittleEndian.Uint32(crcBytes[:]) != maskedCRC(lengthBytes[:]) {
		return nil, &DecodeError{Path: r.path, Index: r.index, Err: fmt.Errorf("length crc mismatch")}
	}

	length := binary.LittleEndian.Uint64(lengthBytes[:])
	want := uint64(r.schema.payloadSize())
	if length != want {
		return nil, &DecodeError{Path: r.path, Index: r.index,
			Err: fmt.Errorf("record length %d does not match schema payload size %d", length, want)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, &DecodeError{Path: r.path, Index: r.index, Err: fmt.Errorf("truncated payload: %w", err)}
	}
	if _, err := io.ReadFull(r.br, crcBytes[:]); err != nil {
		return nil, &DecodeError{Path: r.path, Index: r.index, Err: fmt.Errorf("truncated payload crc: %w", err)}
	}
	if binary.LittleEndian.Uint32(crcBytes[:]) != maskedCRC(payload) {
		return nil, &DecodeError{Path: r.path, Index: r.index, Err: fmt.Errorf("payload crc mismatch")}
	}

	feature := r.decodePayload(payload)
	r.index++
	return feature, nil
}

func (r *Reader) decodePayload(payload []byte) *features.Feature {
	s := r.schema
	offset := 0
	u64 := func() uint64 {
		v := binary.LittleEndian.Uint64(payload[offset:])
		offset += 8
		return v
	}
	f32 := func() float32 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(payload[offset:]))
		offset += 4
		return v
	}

	feature := &features.Feature{
		InputIDs:   make([]int64, s.SeqLength),
		InputMask:  make([]float32, s.SeqLength),
		SegmentIDs: make([]int64, s.SeqLength),
	}
	for i := range feature.InputIDs {
		feature.InputIDs[i] = int64(u64())
	}
	for i := range feature.InputMask {
		if s.MaskType == Float32 {
			feature.InputMask[i] = f32()
		} else {
			feature.InputMask[i] = float32(int64(u64()))
		}
	}
	for i := range feature.SegmentIDs {
		feature.SegmentIDs[i] = int64(u64())
	}
	if s.LabelType == Float32 {
		feature.LabelValue = f32()
	} else {
		feature.LabelID = int64(u64())
	}
	feature.IsRealExample = u64() == 1
	return feature
}

func (r *Reader) rewind() error {
	if err := r.source.Close(); err != nil {
		return err
	}
	source, err := fileutil.OpenFile(r.path)
	if err != nil {
		return fmt.Errorf("reopening container %s: %w", r.path, err)
	}
	r.source = source
	r.br = bufio.NewReader(source)
	r.index = 0
	return nil
}

func (r *Reader) Close() error {
	return r.source.Close()
}

// Batch is one fixed-shape batch of decoded records materialized as tensors.
// InputIDs and SegmentIDs are [n, seqLength] int64; InputMask is
// [n, seqLength] int64 or float32 per the schema; Labels is [n] int64 or
// float32 per the schema; IsReal is [n] int64.
type Batch struct {
	Size       int
	InputIDs   *tensor.Dense
	InputMask  *tensor.Dense
	SegmentIDs *tensor.Dense
	Labels     *tensor.Dense
	IsReal     *tensor.Dense
}

// NextBatch decodes up to batchSize records into a tensor batch. The final
// batch of a container may be short; callers with fixed-shape consumers are
// expected to have aligned the example count at write time. Returns io.EOF
// when no records remain.
func (r *Reader) NextBatch(batchSize int) (*Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	feats := make([]*features.Feature, 0, batchSize)
	for len(feats) < batchSize {
		feature, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		feats = append(feats, feature)
	}
	if len(feats) == 0 {
		return nil, io.EOF
	}

	n, l := len(feats), r.schema.SeqLength
	ids := make([]int64, 0, n*l)
	segments := make([]int64, 0, n*l)
	isReal := make([]int64, n)

	for i, feature := range feats {
		ids = append(ids, feature.InputIDs...)
		segments = append(segments, feature.SegmentIDs...)
		if feature.IsRealExample {
			isReal[i] = 1
		}
	}

	batch := &Batch{
		Size:       n,
		InputIDs:   tensor.New(tensor.WithShape(n, l), tensor.WithBacking(ids)),
		SegmentIDs: tensor.New(tensor.WithShape(n, l), tensor.WithBacking(segments)),
		IsReal:     tensor.New(tensor.WithShape(n), tensor.WithBacking(isReal)),
	}

	if r.schema.MaskType == Float32 {
		mask := make([]float32, 0, n*l)
		for _, feature := range feats {
			mask = append(mask, feature.InputMask...)
		}
		batch.InputMask = tensor.New(tensor.WithShape(n, l), tensor.WithBacking(mask))
	} else {
		mask := make([]int64, 0, n*l)
		for _, feature := range feats {
			for _, m := range feature.InputMask {
				mask = append(mask, int64(m))
			}
		}
		batch.InputMask = tensor.New(tensor.WithShape(n, l), tensor.WithBacking(mask))
	}

	if r.schema.LabelType == Float32 {
		labels := make([]float32, n)
		for i, feature := range feats {
			labels[i] = feature.LabelValue
		}
		batch.Labels = tensor.New(tensor.WithShape(n), tensor.WithBacking(labels))
	} else {
		labels := make([]int64, n)
		for i, feature := range feats {
			labels[i] = feature.LabelID
		}
		batch.Labels = tensor.New(tensor.WithShape(n), tensor.WithBacking(labels))
	}
	return batch, nil
}
