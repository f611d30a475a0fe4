package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/textmine/seqprep"
	"github.com/textmine/seqprep/datasets"
	"github.com/textmine/seqprep/features"
	"github.com/textmine/seqprep/tokenize"
)

var (
	taskName      string
	dataDir       string
	outputDir     string
	tokenizerPath string
	splitsFlag    string
	maxSeqLength  int
	trainBatch    int
	evalBatch     int
	predictBatch  int
	numPasses     int
	overwrite     bool
	lowercase     bool
	padLeft       bool
	intMask       bool
	startToken    string
	sepToken      string
	verbose       bool
)

var convertCommand = &cli.Command{
	Name:  "convert",
	Usage: "Convert a raw dataset split into a feature record container",
	Description: `Convert loads the raw files of a registered task, encodes every example
into fixed-length features with the given tokenizer, and writes one record
container per split under the output directory. Existing containers are
reused unless --overwrite is set.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "task",
			Usage:       "Registered task name (see the tasks command)",
			Aliases:     []string{"t"},
			Destination: &taskName,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory with the raw dataset files",
			Aliases:     []string{"d"},
			Destination: &dataDir,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output-dir",
			Usage:       "Directory where record containers are written",
			Aliases:     []string{"o"},
			Destination: &outputDir,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "Path to the tokenizer.json vocabulary",
			Aliases:     []string{"k"},
			Destination: &tokenizerPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "splits",
			Usage:       "Comma-separated splits to convert",
			Destination: &splitsFlag,
			Value:       "train,dev,test",
		},
		&cli.IntFlag{
			Name:        "max-seq-length",
			Usage:       "Fixed feature sequence length",
			Destination: &maxSeqLength,
			Value:       128,
		},
		&cli.IntFlag{
			Name:        "train-batch-size",
			Destination: &trainBatch,
			Value:       8,
		},
		&cli.IntFlag{
			Name:        "eval-batch-size",
			Destination: &evalBatch,
			Value:       128,
		},
		&cli.IntFlag{
			Name:        "predict-batch-size",
			Destination: &predictBatch,
			Value:       128,
		},
		&cli.IntFlag{
			Name:        "num-passes",
			Usage:       "Times the training examples are repeated in the container",
			Destination: &numPasses,
			Value:       1,
		},
		&cli.BoolFlag{
			Name:        "overwrite",
			Usage:       "Regenerate containers even when cached ones exist",
			Destination: &overwrite,
		},
		&cli.BoolFlag{
			Name:        "lowercase",
			Usage:       "Lowercase text before tokenization",
			Destination: &lowercase,
		},
		&cli.BoolFlag{
			Name:        "pad-left",
			Usage:       "Pad sequences on the left instead of the right",
			Destination: &padLeft,
		},
		&cli.BoolFlag{
			Name:        "int-mask",
			Usage:       "Serialize the attention mask as int64 instead of float32",
			Destination: &intMask,
		},
		&cli.StringFlag{
			Name:        "start-token",
			Usage:       "Sequence start marker token",
			Destination: &startToken,
			Value:       "[CLS]",
		},
		&cli.StringFlag{
			Name:        "sep-token",
			Usage:       "Sequence separator marker token",
			Destination: &sepToken,
			Value:       "[SEP]",
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "Log decoded examples and per-batch progress",
			Destination: &verbose,
		},
	},
	Action: convertAction,
}

func convertAction(_ *cli.Context) error {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := seqprep.DefaultConfig()
	cfg.TaskName = strings.ToLower(taskName)
	cfg.DataDir = dataDir
	cfg.OutputDir = outputDir
	cfg.MaxSeqLength = maxSeqLength
	cfg.TrainBatchSize = trainBatch
	cfg.EvalBatchSize = evalBatch
	cfg.PredictBatchSize = predictBatch
	cfg.NumPasses = numPasses
	cfg.OverwriteData = overwrite
	cfg.Lowercase = lowercase
	cfg.PadLeft = padLeft
	cfg.IntMask = intMask
	cfg.StartToken = startToken
	cfg.SepToken = sepToken

	// Resolve the task before touching any input files.
	adapter, err := datasets.Get(cfg.TaskName)
	if err != nil {
		return err
	}

	subword, err := tokenize.FromFile(tokenizerPath)
	if err != nil {
		return err
	}
	startID, ok := subword.TokenID(cfg.StartToken)
	if !ok {
		return fmt.Errorf("start token %q not in tokenizer vocabulary", cfg.StartToken)
	}
	sepID, ok := subword.TokenID(cfg.SepToken)
	if !ok {
		return fmt.Errorf("separator token %q not in tokenizer vocabulary", cfg.SepToken)
	}

	encoder := &features.Encoder{
		MaxSeqLength: cfg.MaxSeqLength,
		Markers:      features.DefaultMarkers(startID, sepID),
		PadLeft:      cfg.PadLeft,
		Regression:   adapter.Labels() == nil,
		Decode:       subword.Decode,
		LogFirstN:    5,
	}
	tok := features.TokenizeFunc(subword.Bound(cfg.Lowercase))

	for _, raw := range strings.Split(splitsFlag, ",") {
		split := datasets.Split(strings.TrimSpace(raw))
		switch split {
		case datasets.Train, datasets.Dev, datasets.Test:
		default:
			return fmt.Errorf("unknown split %q", split)
		}
		result, err := seqprep.ConvertSplit(cfg, adapter, split, encoder, tok, subword.Tag())
		if err != nil {
			return err
		}
		log.Info().Str("split", string(result.Split)).Str("container", result.Path).
			Int("examples", result.Examples).Int("features", result.Features).
			Int("padding", result.Padding).Int("skipped", result.Skipped).
			Msg("conversion done")
	}
	return nil
}

var tasksCommand = &cli.Command{
	Name:  "tasks",
	Usage: "List the registered tasks",
	Action: func(_ *cli.Context) error {
		for _, name := range datasets.Tasks() {
			fmt.Println(name)
		}
		return nil
	},
}

func main() {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	app := &cli.App{
		Name:     "seqprep",
		Usage:    "Prepare text-classification datasets for sequence model fine-tuning",
		Commands: []*cli.Command{convertCommand, tasksCommand},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("seqprep failed")
	}
}
