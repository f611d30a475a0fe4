package datasets

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/textmine/seqprep/util/fileutil"
)

// DelimitedTextAdapter reads plain-text datasets where each line is split on
// a custom field separator and text/label columns are selected by index.
// Splits live in <split>.txt files under the data directory.
type DelimitedTextAdapter struct {
	TaskName  string
	Separator string

	TextACol int
	TextBCol int // noColumn for single-sequence tasks
	LabelCol int

	Header    bool
	LabelList []string
}

func (a *DelimitedTextAdapter) Name() string { return a.TaskName }

func (a *DelimitedTextAdapter) Labels() []string { return a.LabelList }

func (a *DelimitedTextAdapter) Examples(dataDir string, split Split) ([]*Example, LoadStats, error) {
	path := fileutil.PathJoinSafe(dataDir, fmt.Sprintf("%s.txt", split))

	required := a.TextACol
	if a.TextBCol != noColumn && a.TextBCol > required {
		required = a.TextBCol
	}
	if split != Test && a.LabelCol > required {
		required = a.LabelCol
	}

	var examples []*Example
	var stats LoadStats
	err := fileutil.ForEachLine(path, func(i int, line []byte) error {
		if i == 0 && a.Header {
			return nil
		}
		stats.Rows++

		fields := strings.Split(strings.TrimSpace(string(line)), a.Separator)
		if len(fields) <= required {
			stats.Skipped++
			log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
				Int("fields", len(fields)).Msg("short row, skipped")
			return nil
		}

		example := &Example{GUID: guid(split, i), TextA: fields[a.TextACol]}
		if a.TextBCol != noColumn {
			example.TextB = strPtr(fields[a.TextBCol])
		}
		if split != Test {
			example.Label = strPtr(fields[a.LabelCol])
		}
		examples = append(examples, example)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("reading %s: %w", path, err)
	}
	return examples, stats, nil
}

func newINews() *DelimitedTextAdapter {
	return &DelimitedTextAdapter{
		TaskName:  "inews",
		Separator: "_!_",
		TextACol:  2, TextBCol: 3, LabelCol: 0,
		Header:    true,
		LabelList: []string{"0", "1", "2"},
	}
}

func newTHUCNews() *DelimitedTextAdapter {
	labels := make([]string, 14)
	for i := range labels {
		labels[i] = fmt.Sprintf("%d", i)
	}
	return &DelimitedTextAdapter{
		TaskName:  "thucnews",
		Separator: "_!_",
		TextACol:  3, TextBCol: noColumn, LabelCol: 0,
		Header:    true,
		LabelList: labels,
	}
}
