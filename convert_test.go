package seqprep

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmine/seqprep/datasets"
	"github.com/textmine/seqprep/features"
	"github.com/textmine/seqprep/records"
)

func wordTok(text string) ([]int, error) {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i := range ids {
		ids[i] = 1000 + i
	}
	return ids, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TaskName = "tnews"
	cfg.DataDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.MaxSeqLength = 16
	cfg.EvalBatchSize = 4
	return cfg
}

func testEncoderFor(cfg *Config) *features.Encoder {
	return &features.Encoder{
		MaxSeqLength: cfg.MaxSeqLength,
		Markers:      features.DefaultMarkers(101, 102),
		PadLeft:      cfg.PadLeft,
	}
}

func writeDevSplit(t *testing.T, dir string, n int) {
	t.Helper()
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf(`{"sentence": "example number %d", "label": "100"}`, i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dev.json"),
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestContainerPathEncodesIdentity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = "/out"
	cfg.MaxSeqLength = 128

	path := ContainerPath(cfg, "spiece", datasets.Train)
	assert.Equal(t, filepath.Join("/out", "spiece.len-128.train.record"), path)

	cfg.MaxSeqLength = 64
	assert.NotEqual(t, path, ContainerPath(cfg, "spiece", datasets.Train))
	assert.NotEqual(t, path, ContainerPath(cfg, "other", datasets.Train))
	assert.NotEqual(t, path, ContainerPath(cfg, "spiece", datasets.Dev))
}

func TestConvertSplitAlignsEval(t *testing.T) {
	cfg := testConfig(t)
	writeDevSplit(t, cfg.DataDir, 10)

	adapter, err := datasets.Get("tnews")
	require.NoError(t, err)

	result, err := ConvertSplit(cfg, adapter, datasets.Dev, testEncoderFor(cfg), wordTok, "tok")
	require.NoError(t, err)

	assert.Equal(t, 10, result.Examples)
	assert.Equal(t, 2, result.Padding)
	assert.Equal(t, 12, result.Features)
	assert.Zero(t, result.Skipped)

	// the container holds 12 records, the last 2 synthetic
	reader, err := records.NewReader(result.Path, SchemaFor(cfg, adapter.Labels()))
	require.NoError(t, err)
	defer reader.Close()

	var total, synthetic int
	for {
		feature, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		total++
		if !feature.IsRealExample {
			synthetic++
			assert.Greater(t, total, 10, "padding must be appended, never interspersed")
		}
	}
	assert.Equal(t, 12, total)
	assert.Equal(t, 2, synthetic)
}

func TestConvertSplitReusesCachedContainer(t *testing.T) {
	cfg := testConfig(t)
	writeDevSplit(t, cfg.DataDir, 4)

	adapter, err := datasets.Get("tnews")
	require.NoError(t, err)
	encoder := testEncoderFor(cfg)

	first, err := ConvertSplit(cfg, adapter, datasets.Dev, encoder, wordTok, "tok")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Features)
	raw, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := ConvertSplit(cfg, adapter, datasets.Dev, encoder, wordTok, "tok")
	require.NoError(t, err)
	assert.Zero(t, second.Features)
	rawAgain, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, raw, rawAgain)

	cfg.OverwriteData = true
	third, err := ConvertSplit(cfg, adapter, datasets.Dev, encoder, wordTok, "tok")
	require.NoError(t, err)
	assert.Equal(t, 4, third.Features)
}

func TestConvertSplitTrainDropsRemainder(t *testing.T) {
	cfg := testConfig(t)
	cfg.TrainBatchSize = 8
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"sentence": "row %d", "label": "101"}`, i))
	}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "train.json"),
		[]byte(strings.Join(lines, "\n")+"\n"), 0o644))

	adapter, err := datasets.Get("tnews")
	require.NoError(t, err)

	// default policy: remainder handling happens at consumption time, the
	// training container is written unaligned
	result, err := ConvertSplit(cfg, adapter, datasets.Train, testEncoderFor(cfg), wordTok, "tok")
	require.NoError(t, err)
	assert.Equal(t, 10, result.Examples)
	assert.Zero(t, result.Padding)
	assert.Equal(t, 10, result.Features)

	// aligned policy pads the training split too
	cfg.DropRemainder = false
	cfg.OverwriteData = true
	result, err = ConvertSplit(cfg, adapter, datasets.Train, testEncoderFor(cfg), wordTok, "tok")
	require.NoError(t, err)
	assert.Equal(t, 6, result.Padding)
	assert.Equal(t, 16, result.Features)
}

func TestConvertSplitNumPasses(t *testing.T) {
	cfg := testConfig(t)
	cfg.NumPasses = 3
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "train.json"),
		[]byte(`{"sentence": "once", "label": "102"}`+"\n"), 0o644))

	adapter, err := datasets.Get("tnews")
	require.NoError(t, err)

	result, err := ConvertSplit(cfg, adapter, datasets.Train, testEncoderFor(cfg), wordTok, "tok")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Examples)
	assert.Equal(t, 3, result.Features)
}

func TestConvertSplitSurfacesLabelMismatch(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "dev.json"),
		[]byte(`{"sentence": "x", "label": "999"}`+"\n"), 0o644))

	adapter, err := datasets.Get("tnews")
	require.NoError(t, err)

	_, err = ConvertSplit(cfg, adapter, datasets.Dev, testEncoderFor(cfg), wordTok, "tok")
	var labelErr *features.LabelNotFoundError
	require.ErrorAs(t, err, &labelErr)
}

func TestSchemaFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLength = 32

	schema := SchemaFor(cfg, []string{"0", "1"})
	assert.Equal(t, records.Float32, schema.MaskType)
	assert.Equal(t, records.Int64, schema.LabelType)

	cfg.IntMask = true
	schema = SchemaFor(cfg, []string{"0", "1"})
	assert.Equal(t, records.Int64, schema.MaskType)

	// nil label vocabulary marks regression
	schema = SchemaFor(cfg, nil)
	assert.Equal(t, records.Float32, schema.LabelType)
}
