package seqprep

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/textmine/seqprep/util/fileutil"
)

// Default primary metrics for checkpoint selection.
const (
	MetricAccuracy = "eval_accuracy"
	MetricPearson  = "eval_pearsonr"
)

// CheckpointResult holds the metrics of one evaluated checkpoint.
type CheckpointResult struct {
	Step    int64
	Path    string
	Metrics map[string]float64
}

// EvalReport accumulates per-checkpoint evaluation results and renders the
// flat key = value log the original tooling expects, ending with the best
// checkpoint by the primary metric.
type EvalReport struct {
	Primary string
	Results []CheckpointResult
}

// NewEvalReport picks the primary metric: an explicit override if set,
// otherwise accuracy for classification and Pearson r for regression.
func NewEvalReport(cfg *Config, regression bool) *EvalReport {
	primary := cfg.PrimaryMetric
	if primary == "" {
		primary = MetricAccuracy
		if regression {
			primary = MetricPearson
		}
	}
	return &EvalReport{Primary: primary}
}

func (r *EvalReport) Add(step int64, checkpointPath string, metrics map[string]float64) {
	r.Results = append(r.Results, CheckpointResult{Step: step, Path: checkpointPath, Metrics: metrics})
}

// Best returns the checkpoint with the highest primary metric.
func (r *EvalReport) Best() (*CheckpointResult, error) {
	if len(r.Results) == 0 {
		return nil, fmt.Errorf("eval report: no checkpoint results")
	}
	best := &r.Results[0]
	for i := range r.Results[1:] {
		candidate := &r.Results[i+1]
		if candidate.Metrics[r.Primary] > best.Metrics[r.Primary] {
			best = candidate
		}
	}
	return best, nil
}

// Write renders the report to path: one key = value line per metric per
// checkpoint in step order, then the best-checkpoint summary.
func (r *EvalReport) Write(path string) (err error) {
	best, err := r.Best()
	if err != nil {
		return err
	}

	out, err := fileutil.NewFileWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	results := slices.Clone(r.Results)
	slices.SortFunc(results, func(a, b CheckpointResult) int {
		return int(a.Step - b.Step)
	})

	for _, result := range results {
		if _, err := fmt.Fprintf(out, "step = %d\npath = %s\n", result.Step, result.Path); err != nil {
			return err
		}
		for _, key := range sortedKeys(result.Metrics) {
			if _, err := fmt.Fprintf(out, "%s = %v\n", key, result.Metrics[key]); err != nil {
				return err
			}
		}
	}

	_, err = fmt.Fprintf(out, "best checkpoint by %s = %s (step %d, %s = %v)\n",
		r.Primary, best.Path, best.Step, r.Primary, best.Metrics[r.Primary])
	return err
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
