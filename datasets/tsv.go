package datasets

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/textmine/seqprep/util/fileutil"
)

// noColumn marks an unused column index.
const noColumn = -1

// TSVAdapter reads tab-separated datasets with configurable column indices.
// Test splits often drop the label column and may use different text columns
// or header conventions, so those are configured independently. Rows shorter
// than a required column are warned and skipped, never indexed past.
type TSVAdapter struct {
	TaskName  string
	TrainFile string
	DevFile   string
	TestFile  string

	TextACol int
	TextBCol int // noColumn for single-sequence tasks
	LabelCol int

	// Test split overrides; noColumn falls back to the train columns.
	TestTextACol int
	TestTextBCol int

	Header     bool
	TestHeader bool

	LabelList  []string
	Regression bool
}

func (a *TSVAdapter) Name() string { return a.TaskName }

func (a *TSVAdapter) Labels() []string {
	if a.Regression {
		return nil
	}
	return a.LabelList
}

func (a *TSVAdapter) fileFor(split Split) string {
	switch split {
	case Train:
		return a.TrainFile
	case Dev:
		return a.DevFile
	default:
		return a.TestFile
	}
}

func (a *TSVAdapter) Examples(dataDir string, split Split) ([]*Example, LoadStats, error) {
	path := fileutil.PathJoinSafe(dataDir, a.fileFor(split))
	rows, err := readDelimited(path, '\t')
	if err != nil {
		return nil, LoadStats{}, err
	}

	aCol, bCol := a.TextACol, a.TextBCol
	header := a.Header
	if split == Test {
		header = a.TestHeader
		if a.TestTextACol != noColumn {
			aCol = a.TestTextACol
		}
		if a.TestTextBCol != noColumn {
			bCol = a.TestTextBCol
		}
	}

	var examples []*Example
	var stats LoadStats
	for i, row := range rows {
		if i == 0 && header {
			continue
		}
		stats.Rows++

		aIdx := resolveColumn(aCol, len(row))
		if aIdx < 0 || len(row) <= aIdx {
			stats.Skipped++
			log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
				Msg("incomplete line, ignored")
			continue
		}
		example := &Example{GUID: guid(split, i), TextA: row[aIdx]}

		if bCol != noColumn {
			bIdx := resolveColumn(bCol, len(row))
			if bIdx < 0 || len(row) <= bIdx {
				stats.Skipped++
				log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
					Msg("incomplete line, ignored")
				continue
			}
			example.TextB = strPtr(row[bIdx])
		}

		if split != Test {
			lIdx := resolveColumn(a.LabelCol, len(row))
			if lIdx < 0 || len(row) <= lIdx {
				stats.Skipped++
				log.Warn().Str("task", a.TaskName).Str("file", path).Int("line", i).
					Msg("incomplete line, ignored")
				continue
			}
			example.Label = strPtr(row[lIdx])
		}

		examples = append(examples, example)
	}
	return examples, stats, nil
}

// resolveColumn supports python-style negative indices counted from the row
// end, which the MNLI configuration uses for its trailing label column.
func resolveColumn(col, rowLen int) int {
	if col >= 0 {
		return col
	}
	return rowLen + col
}

func readDelimited(path string, comma rune) ([][]string, error) {
	file, err := fileutil.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		rows = append(rows, row)
	}
}

func newLCQMC() *TSVAdapter {
	return &TSVAdapter{
		TaskName:  "lcqmc",
		TrainFile: "train.txt", DevFile: "dev.txt", TestFile: "test.txt",
		TextACol: 0, TextBCol: 1, LabelCol: 2,
		TestTextACol: noColumn, TestTextBCol: noColumn,
		Header: true, TestHeader: true,
		LabelList: []string{"0", "1"},
	}
}

func newBQ() *TSVAdapter {
	return &TSVAdapter{
		TaskName:  "bq",
		TrainFile: "train.txt", DevFile: "dev.txt", TestFile: "test.txt",
		TextACol: 0, TextBCol: 1, LabelCol: 2,
		TestTextACol: noColumn, TestTextBCol: noColumn,
		Header: true, TestHeader: true,
		LabelList: []string{"0", "1"},
	}
}

func newMNLI(mismatched bool) *TSVAdapter {
	dev, test, name := "dev_matched.tsv", "test_matched.tsv", "mnli"
	if mismatched {
		dev, test, name = "dev_mismatched.tsv", "test_mismatched.tsv", "mnli-mm"
	}
	return &TSVAdapter{
		TaskName:  name,
		TrainFile: "train.tsv", DevFile: dev, TestFile: test,
		TextACol: 8, TextBCol: 9, LabelCol: -1,
		TestTextACol: noColumn, TestTextBCol: noColumn,
		Header: true, TestHeader: true,
		LabelList: []string{"contradiction", "entailment", "neutral"},
	}
}

func newSTSB() *TSVAdapter {
	return &TSVAdapter{
		TaskName:  "sts-b",
		TrainFile: "train.tsv", DevFile: "dev.tsv", TestFile: "test.tsv",
		TextACol: 7, TextBCol: 8, LabelCol: 9,
		TestTextACol: noColumn, TestTextBCol: noColumn,
		Header: true, TestHeader: true,
		Regression: true,
	}
}
