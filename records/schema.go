// Package records owns the on-disk container for serialized features: an
// ordered, appendable sequence of fixed-shape records. The wire framing is
// TFRecord-compatible (length, masked CRC32-C of the length, payload, masked
// CRC32-C of the payload); the payload itself is a little-endian fixed-shape
// field codec driven by a Schema declared independently of the data. No
// other package assumes knowledge of the byte format.
package records

import (
	"fmt"
	"hash/crc32"
)

// FieldType selects the numeric representation of a schema field.
type FieldType int

const (
	Int64 FieldType = iota
	Float32
)

func (t FieldType) size() int {
	if t == Float32 {
		return 4
	}
	return 8
}

func (t FieldType) String() string {
	if t == Float32 {
		return "float32"
	}
	return "int64"
}

// Schema declares the shape and field types of every record in a container.
// The writer and reader of a container must be handed the same schema; the
// reader treats any drift as corruption, not as something to cast away.
//
// Token and segment ids are always int64 sequences of SeqLength. The
// attention mask is int64 or float32 per MaskType, consistently for the
// whole container. The label is an int64 index for classification or a
// float32 target for regression, per LabelType. The is-real-example flag is
// an int64 scalar 0/1.
type Schema struct {
	SeqLength int
	MaskType  FieldType
	LabelType FieldType
}

func (s Schema) validate() error {
	if s.SeqLength <= 0 {
		return fmt.Errorf("schema: sequence length must be positive, got %d", s.SeqLength)
	}
	return nil
}

// payloadSize is the exact byte length of one encoded record.
func (s Schema) payloadSize() int {
	return s.SeqLength*8 + // input ids
		s.SeqLength*s.MaskType.size() + // attention mask
		s.SeqLength*8 + // segment ids
		s.LabelType.size() + // label
		8 // is_real_example
}

// TFRecord CRC masking constant.
const maskDelta = 0xa282ead8

var crcTable = crc32.MakeTable(crc32.Castagnoli)

func maskedCRC(data []byte) uint32 {
	crc := crc32.Checksum(data, crcTable)
	return ((crc >> 15) | (crc << 17)) + maskDelta
}
