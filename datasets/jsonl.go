package datasets

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/textmine/seqprep/util/fileutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONLAdapter reads datasets stored as one JSON object per line, with the
// text and label carried in named fields. Splits live in <split>.json files
// under the data directory. A missing label field on the test split maps to
// a nil label; on any other split the row is dropped as malformed.
type JSONLAdapter struct {
	TaskName   string
	TextAField string
	TextBField string // empty for single-sequence tasks
	LabelField string
	LabelList  []string
}

func (a *JSONLAdapter) Name() string { return a.TaskName }

func (a *JSONLAdapter) Labels() []string { return a.LabelList }

func (a *JSONLAdapter) Examples(dataDir string, split Split) ([]*Example, LoadStats, error) {
	path := fileutil.PathJoinSafe(dataDir, fmt.Sprintf("%s.json", split))
	var examples []*Example
	var stats LoadStats

	err := fileutil.ForEachLine(path, func(i int, line []byte) error {
		stats.Rows++
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			stats.Skipped++
			log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
				Err(err).Msg("malformed json line, skipped")
			return nil
		}

		textA, ok := stringField(row, a.TextAField)
		if !ok {
			stats.Skipped++
			log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
				Str("field", a.TextAField).Msg("missing text field, row skipped")
			return nil
		}

		example := &Example{GUID: guid(split, i), TextA: textA}
		if a.TextBField != "" {
			textB, ok := stringField(row, a.TextBField)
			if !ok {
				stats.Skipped++
				log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
					Str("field", a.TextBField).Msg("missing text field, row skipped")
				return nil
			}
			example.TextB = strPtr(textB)
		}

		if label, ok := stringField(row, a.LabelField); ok {
			example.Label = strPtr(label)
		} else if split != Test {
			stats.Skipped++
			log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
				Msg("missing label on labelled split, row skipped")
			return nil
		}

		examples = append(examples, example)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("reading %s: %w", path, err)
	}
	return examples, stats, nil
}

// stringField fetches a field that may be encoded as a JSON string or number.
func stringField(row map[string]any, field string) (string, bool) {
	value, ok := row[field]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%g", v), true
	default:
		return "", false
	}
}

func newTNews() *JSONLAdapter {
	// 17 news categories numbered from 100, with 105 and 111 unassigned.
	labels := make([]string, 0, 15)
	for i := 0; i < 17; i++ {
		if i == 5 || i == 11 {
			continue
		}
		labels = append(labels, fmt.Sprintf("%d", 100+i))
	}
	return &JSONLAdapter{
		TaskName:   "tnews",
		TextAField: "sentence",
		LabelField: "label",
		LabelList:  labels,
	}
}

func newIFlytek() *JSONLAdapter {
	labels := make([]string, 119)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i)
	}
	return &JSONLAdapter{
		TaskName:   "iflytek",
		TextAField: "sentence",
		LabelField: "label",
		LabelList:  labels,
	}
}

func newXNLI() *JSONLAdapter {
	return &JSONLAdapter{
		TaskName:   "xnli",
		TextAField: "premise",
		TextBField: "hypo",
		LabelField: "label",
		LabelList:  []string{"contradiction", "entailment", "neutral"},
	}
}

func newAFQMC() *JSONLAdapter {
	return &JSONLAdapter{
		TaskName:   "afqmc",
		TextAField: "sentence1",
		TextBField: "sentence2",
		LabelField: "label",
		LabelList:  []string{"0", "1"},
	}
}
