// Package datasets normalizes raw text-classification datasets into a single
// in-memory example representation. Each task is served by an Adapter that
// owns the dataset-specific file layout; nothing downstream of this package
// interprets raw files.
package datasets

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Split selects which portion of a dataset an adapter loads.
type Split string

const (
	Train Split = "train"
	Dev   Split = "dev"
	Test  Split = "test"
)

// Entry is either an *Example or a PaddingExample. The padding sentinel is a
// distinct type so that "never tokenize a padding entry" is enforced by the
// type switch in the encoder rather than by a nullable field.
type Entry interface {
	entry()
}

// Example is a single training/dev/test example for sequence classification.
// TextB is nil for single-sequence tasks. Label is nil only when the ground
// truth is intentionally withheld (test splits).
type Example struct {
	GUID  string
	TextA string
	TextB *string
	Label *string
}

func (*Example) entry() {}

// PaddingExample is a synthetic entry appended so that the number of examples
// is a multiple of the batch size. Fixed-shape batch execution needs complete
// batches; padding entries carry zero weight in any downstream aggregation.
type PaddingExample struct{}

func (PaddingExample) entry() {}

// Entries widens a slice of examples for consumption by the batch aligner.
func Entries(examples []*Example) []Entry {
	entries := make([]Entry, len(examples))
	for i, example := range examples {
		entries[i] = example
	}
	return entries
}

// LoadStats reports how a split load went. Skipped counts malformed or short
// rows that were dropped; a caller can assert on it instead of parsing logs.
type LoadStats struct {
	Rows    int
	Skipped int
}

// Adapter reads one dataset layout and produces canonical examples.
//
// Labels returns the ordered label vocabulary: the position of a label string
// is the integer id used everywhere downstream, so the ordering must be
// stable across runs. A nil return marks a regression task with no discrete
// labels.
type Adapter interface {
	Name() string
	Labels() []string
	Examples(dataDir string, split Split) ([]*Example, LoadStats, error)
}

// ErrUnknownTask is returned by Get for task names with no registered
// adapter. The lookup happens before any I/O.
var ErrUnknownTask = fmt.Errorf("unknown task")

var registry = map[string]Adapter{}

// Register adds an adapter to the task registry. Registering the same name
// twice panics: it is a programming error, not a runtime condition.
func Register(adapter Adapter) {
	name := adapter.Name()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("datasets: adapter %q registered twice", name))
	}
	registry[name] = adapter
}

// Get resolves a task name to its adapter.
func Get(taskName string) (Adapter, error) {
	adapter, ok := registry[taskName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskName)
	}
	return adapter, nil
}

// Tasks lists the registered task names in sorted order.
func Tasks() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func guid(split Split, i int) string {
	return fmt.Sprintf("%s-%d", split, i)
}

func strPtr(s string) *string {
	return &s
}
