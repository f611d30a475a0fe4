package seqprep

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/textmine/seqprep/datasets"
	"github.com/textmine/seqprep/features"
	"github.com/textmine/seqprep/records"
	"github.com/textmine/seqprep/util/fileutil"
)

// ContainerPath names the container for one (tokenizer config, sequence
// length, split) triple. All three parameters are part of the file identity
// so changing any of them produces a new container instead of silently
// reusing a stale one.
func ContainerPath(cfg *Config, tokenizerTag string, split datasets.Split) string {
	return fileutil.PathJoinSafe(cfg.OutputDir,
		fmt.Sprintf("%s.len-%d.%s.record", tokenizerTag, cfg.MaxSeqLength, split))
}

// SchemaFor derives the container schema from the run configuration and the
// task's label vocabulary (nil labels mark a regression task).
func SchemaFor(cfg *Config, labels []string) records.Schema {
	schema := records.Schema{
		SeqLength: cfg.MaxSeqLength,
		MaskType:  records.Float32,
		LabelType: records.Int64,
	}
	if cfg.IntMask {
		schema.MaskType = records.Int64
	}
	if labels == nil {
		schema.LabelType = records.Float32
	}
	return schema
}

// ConvertResult reports what a split conversion did. Examples counts the
// real examples loaded, Padding the sentinels appended for batch alignment,
// Features the records written (zero when a cached container was reused),
// Skipped the malformed rows dropped during the load.
type ConvertResult struct {
	Split    datasets.Split
	Path     string
	Examples int
	Padding  int
	Features int
	Skipped  int
}

func (cfg *Config) batchFor(split datasets.Split) int {
	switch split {
	case datasets.Train:
		return cfg.TrainBatchSize
	case datasets.Dev:
		return cfg.EvalBatchSize
	default:
		return cfg.PredictBatchSize
	}
}

// ConvertSplit runs the full pipeline for one split: load raw examples,
// align to the batch size where the consumer needs fixed shapes, encode to
// features, and write the container. The returned counts let a caller
// cross-check examples processed against features written.
func ConvertSplit(cfg *Config, adapter datasets.Adapter, split datasets.Split,
	encoder *features.Encoder, tok features.TokenizeFunc, tokenizerTag string) (*ConvertResult, error) {

	examples, stats, err := adapter.Examples(cfg.DataDir, split)
	if err != nil {
		return nil, fmt.Errorf("loading %s %s examples: %w", adapter.Name(), split, err)
	}
	log.Info().Str("task", adapter.Name()).Str("split", string(split)).
		Int("examples", len(examples)).Int("skipped", stats.Skipped).
		Msg("split loaded")

	if split == datasets.Train && cfg.NumPasses > 1 {
		repeated := make([]*datasets.Example, 0, len(examples)*cfg.NumPasses)
		for pass := 0; pass < cfg.NumPasses; pass++ {
			repeated = append(repeated, examples...)
		}
		examples = repeated
	}

	entries := datasets.Entries(examples)
	// Eval and predict run with fixed-shape batches, so their example count
	// must be a multiple of the batch size. Training either drops the final
	// partial batch at consumption time or aligns here, per configuration.
	if split != datasets.Train || !cfg.DropRemainder {
		entries = features.AlignToBatch(entries, cfg.batchFor(split))
	}
	padding := len(entries) - len(examples)

	feats := make([]*features.Feature, 0, len(entries))
	for i, entry := range entries {
		if i > 0 && i%10000 == 0 {
			log.Info().Int("index", i).Int("total", len(entries)).Msg("encoding examples")
		}
		feature, err := encoder.Encode(i, entry, adapter.Labels(), tok)
		if err != nil {
			return nil, err
		}
		feats = append(feats, feature)
	}

	path := ContainerPath(cfg, tokenizerTag, split)
	written, err := records.WriteFile(path, SchemaFor(cfg, adapter.Labels()), feats, cfg.OverwriteData)
	if err != nil {
		return nil, err
	}
	if written > 0 && written != len(feats) {
		return nil, fmt.Errorf("container %s: wrote %d features for %d entries", path, written, len(feats))
	}

	result := &ConvertResult{
		Split:    split,
		Path:     path,
		Examples: len(examples),
		Padding:  padding,
		Features: written,
		Skipped:  stats.Skipped,
	}
	log.Info().Str("container", path).Int("examples", result.Examples).
		Int("padding", result.Padding).Int("features", result.Features).
		Msg("split converted")
	return result, nil
}
