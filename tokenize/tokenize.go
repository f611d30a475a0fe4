// Package tokenize is the boundary to the external subword tokenizer. The
// rest of the pipeline only sees two pure functions: preprocess text, and
// turn text into token ids.
package tokenize

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"

	"github.com/textmine/seqprep/util/fileutil"
)

// Func turns raw text into token ids.
type Func func(text string) ([]int, error)

// Preprocess normalizes raw text before tokenization: trims surrounding
// whitespace, collapses internal whitespace runs to single spaces, and
// optionally lowercases.
func Preprocess(text string, lowercase bool) string {
	text = strings.Join(strings.Fields(text), " ")
	if lowercase {
		text = strings.ToLower(text)
	}
	return text
}

// Subword wraps a HuggingFace tokenizer.json vocabulary. The tag derived
// from the file name identifies the tokenizer configuration in container
// file names, so changing vocabularies never silently reuses stale
// containers.
type Subword struct {
	tk  *tokenizer.Tokenizer
	tag string
}

// FromFile loads a tokenizer.json from a path or afs URL.
func FromFile(path string) (*Subword, error) {
	raw, err := fileutil.ReadFileBytes(path)
	if err != nil {
		return nil, fmt.Errorf("reading tokenizer %s: %w", path, err)
	}
	tk, err := pretrained.FromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer %s: %w", path, err)
	}
	base := filepath.Base(path)
	return &Subword{
		tk:  tk,
		tag: strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}

// Tag identifies this tokenizer configuration in container file names.
func (s *Subword) Tag() string { return s.tag }

// Tokenize encodes text into token ids. Sequence-boundary markers are the
// encoder's business, so special tokens are not added here.
func (s *Subword) Tokenize(text string) ([]int, error) {
	encoding, err := s.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, err
	}
	return encoding.Ids, nil
}

// Decode renders token ids back to a readable string, used only for the
// decoded example dump.
func (s *Subword) Decode(ids []int) string {
	return s.tk.Decode(ids, false)
}

// TokenID resolves a marker token such as "[CLS]" to its vocabulary id.
func (s *Subword) TokenID(token string) (int, bool) {
	return s.tk.TokenToId(token)
}

// Bound builds the pipeline-facing tokenize function: preprocess, then
// encode.
func (s *Subword) Bound(lowercase bool) Func {
	return func(text string) ([]int, error) {
		return s.Tokenize(Preprocess(text, lowercase))
	}
}
