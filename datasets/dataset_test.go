package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRegistry(t *testing.T) {
	_, err := Get("tnews")
	assert.NoError(t, err)

	_, err = Get("no-such-task")
	assert.ErrorIs(t, err, ErrUnknownTask)

	tasks := Tasks()
	assert.Contains(t, tasks, "tnews")
	assert.Contains(t, tasks, "sts-b")
	assert.IsIncreasing(t, tasks)
}

func TestTNewsLabels(t *testing.T) {
	adapter, err := Get("tnews")
	require.NoError(t, err)

	labels := adapter.Labels()
	assert.Len(t, labels, 15)
	assert.NotContains(t, labels, "105")
	assert.NotContains(t, labels, "111")
	assert.Equal(t, "100", labels[0])
	assert.Equal(t, "116", labels[14])

	// label ordering is contract-significant: two calls must agree
	assert.Equal(t, labels, adapter.Labels())
}

func TestJSONLAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.json",
		`{"sentence": "a", "label": "100"}
{"sentence": "b", "label": "103"}
`)
	writeFile(t, dir, "test.json", `{"sentence": "c"}`+"\n")

	adapter, err := Get("tnews")
	require.NoError(t, err)

	train, stats, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Rows: 2}, stats)
	require.Len(t, train, 2)
	assert.Equal(t, "train-0", train[0].GUID)
	assert.Equal(t, "a", train[0].TextA)
	assert.Nil(t, train[0].TextB)
	require.NotNil(t, train[0].Label)
	assert.Equal(t, "100", *train[0].Label)

	test, _, err := adapter.Examples(dir, Test)
	require.NoError(t, err)
	require.Len(t, test, 1)
	// withheld test label resolves to nil, not an error
	assert.Nil(t, test[0].Label)
}

func TestJSONLAdapterSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.json",
		`{"sentence": "ok", "label": "100"}
not json at all
{"label": "103"}
{"sentence": "also ok", "label": "104"}
`)

	adapter, err := Get("tnews")
	require.NoError(t, err)

	examples, stats, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	assert.Len(t, examples, 2)
	assert.Equal(t, LoadStats{Rows: 4, Skipped: 2}, stats)
}

func TestJSONLPairAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dev.json",
		`{"premise": "a cat sat", "hypo": "a cat", "label": "entailment"}`+"\n")

	adapter, err := Get("xnli")
	require.NoError(t, err)

	examples, _, err := adapter.Examples(dir, Dev)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	require.NotNil(t, examples[0].TextB)
	assert.Equal(t, "a cat", *examples[0].TextB)
	assert.Equal(t, "entailment", *examples[0].Label)
}

func TestTSVAdapterShortRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.txt",
		"text_a\ttext_b\tlabel\n"+
			"first question\tsecond question\t1\n"+
			"only one column\n"+
			"another pair\tits partner\t0\n")

	adapter, err := Get("lcqmc")
	require.NoError(t, err)

	examples, stats, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	assert.Len(t, examples, 2)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, "1", *examples[0].Label)
	assert.Equal(t, "second question", *examples[0].TextB)
}

func TestTSVAdapterTestSplitHasNoLabel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test.txt",
		"text_a\ttext_b\n"+
			"q one\tq two\n")

	adapter, err := Get("bq")
	require.NoError(t, err)

	examples, _, err := adapter.Examples(dir, Test)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Nil(t, examples[0].Label)
}

func TestMNLINegativeLabelColumn(t *testing.T) {
	dir := t.TempDir()
	// MNLI keeps the gold label in the trailing column; the row is wider
	// than the text columns by several fields.
	row := make([]string, 12)
	for i := range row {
		row[i] = "x"
	}
	row[8] = "premise text"
	row[9] = "hypothesis text"
	row[11] = "neutral"
	writeFile(t, dir, "train.tsv", "header\n"+strings.Join(row, "\t")+"\n")

	adapter, err := Get("mnli")
	require.NoError(t, err)

	examples, _, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "premise text", examples[0].TextA)
	assert.Equal(t, "hypothesis text", *examples[0].TextB)
	assert.Equal(t, "neutral", *examples[0].Label)
}

func TestSTSBIsRegression(t *testing.T) {
	adapter, err := Get("sts-b")
	require.NoError(t, err)
	assert.Nil(t, adapter.Labels())
}

func TestDelimitedTextAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.txt",
		"header row\n"+
			"3_!_news_society_!_some headline about things_!_keyword\n"+
			"too_!_short\n")

	adapter, err := Get("thucnews")
	require.NoError(t, err)

	examples, stats, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, "keyword", examples[0].TextA)
	assert.Equal(t, "3", *examples[0].Label)
}

func TestDirTreeAdapter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train/neg/b.txt", "terrible<br />film")
	writeFile(t, dir, "train/neg/a.txt", "awful film")
	writeFile(t, dir, "train/pos/c.txt", "great film")
	writeFile(t, dir, "train/pos/skip.json", "not text")

	adapter, err := Get("imdb")
	require.NoError(t, err)

	examples, stats, err := adapter.Examples(dir, Train)
	require.NoError(t, err)
	require.Len(t, examples, 3)
	assert.Equal(t, 3, stats.Rows)

	// sorted order: neg/a, neg/b, pos/c regardless of creation order
	assert.Equal(t, "awful film", examples[0].TextA)
	assert.Equal(t, "neg", *examples[0].Label)
	assert.Equal(t, "terrible film", examples[1].TextA)
	assert.Equal(t, "great film", examples[2].TextA)
	assert.Equal(t, "pos", *examples[2].Label)
}

func TestDirTreeAdapterMissingSplit(t *testing.T) {
	adapter := &DirTreeAdapter{
		TaskName:  "toy",
		LabelList: []string{"a"},
		SplitDirs: map[Split]string{Train: "train"},
		Extension: ".txt",
	}
	_, _, err := adapter.Examples(t.TempDir(), Test)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownTask))
}
