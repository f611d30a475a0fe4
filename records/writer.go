package records

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/textmine/seqprep/features"
	"github.com/textmine/seqprep/util/fileutil"
)

// Writer appends features to a container as fixed-shape records. Containers
// are write-once: there is no update or delete, only sequential append.
type Writer struct {
	path    string
	schema  Schema
	out     io.WriteCloser
	written int
}

func NewWriter(path string, schema Schema) (*Writer, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	out, err := fileutil.NewFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("creating container %s: %w", path, err)
	}
	return &Writer{path: path, schema: schema, out: out}, nil
}

// Write appends one feature. The feature's sequences must match the schema's
// sequence length exactly; a mismatch is a caller bug surfaced as an error
// rather than silently reshaped.
func (w *Writer) Write(feature *features.Feature) error {
	s := w.schema
	if len(feature.InputIDs) != s.SeqLength ||
		len(feature.InputMask) != s.SeqLength ||
		len(feature.SegmentIDs) != s.SeqLength {
		return fmt.Errorf("container %s: feature shape %d/%d/%d does not match schema length %d",
			w.path, len(feature.InputIDs), len(feature.InputMask), len(feature.SegmentIDs), s.SeqLength)
	}

	payload := make([]byte, 0, s.payloadSize())
	for _, id := range feature.InputIDs {
		payload = binary.LittleEndian.AppendUint64(payload, uint64(id))
	}
	for _, m := range feature.InputMask {
		if s.MaskType == Float32 {
			payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(m))
		} else {
			payload = binary.LittleEndian.AppendUint64(payload, uint64(int64(m)))
		}
	}
	for _, id := range feature.SegmentIDs {
		payload = binary.LittleEndian.AppendUint64(payload, uint64(id))
	}
	if s.LabelType == Float32 {
		payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(feature.LabelValue))
	} else {
		payload = binary.LittleEndian.AppendUint64(payload, uint64(feature.LabelID))
	}
	var real int64
	if feature.IsRealExample {
		real = 1
	}
	payload = binary.LittleEndian.AppendUint64(payload, uint64(real))

	var lengthBytes [8]byte
	binary.LittleEndian.PutUint64(lengthBytes[:], uint64(len(payload)))

	var frame []byte
	frame = append(frame, lengthBytes[:]...)
	frame = binary.LittleEndian.AppendUint32(frame, maskedCRC(lengthBytes[:]))
	frame = append(frame, payload...)
	frame = binary.LittleEndian.AppendUint32(frame, maskedCRC(payload))

	if _, err := w.out.Write(frame); err != nil {
		return fmt.Errorf("writing record %d to %s: %w", w.written, w.path, err)
	}
	w.written++
	return nil
}

// Written returns the number of records appended so far, for cross-checking
// against the number of examples processed.
func (w *Writer) Written() int { return w.written }

func (w *Writer) Close() error { return w.out.Close() }

// WriteFile serializes features into a container at path. If a container
// already exists and overwrite is false the call is a no-op returning zero:
// repeated construction of the same container is treated as cheap cached
// work, the only place the system skips instead of redoing.
func WriteFile(path string, schema Schema, feats []*features.Feature, overwrite bool) (written int, err error) {
	exists, err := fileutil.FileExists(path)
	if err != nil {
		return 0, err
	}
	if exists && !overwrite {
		log.Info().Str("container", path).Msg("container exists, not overwriting")
		return 0, nil
	}

	writer, err := NewWriter(path, schema)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	for i, feature := range feats {
		if writeErr := writer.Write(feature); writeErr != nil {
			return writer.Written(), fmt.Errorf("feature %d: %w", i, writeErr)
		}
	}
	log.Info().Str("container", path).Int("features", writer.Written()).Msg("container written")
	return writer.Written(), nil
}
