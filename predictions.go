package seqprep

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/textmine/seqprep/util/fileutil"
)

// WritePredictions writes the two prediction artifacts for a task: a
// two-column index/prediction table at <dir>/<task>.tsv and the raw
// per-example score vectors at <dir>/<task>.logits.json. Rows are written in
// the same order as the input prediction split, because predictions are
// reported by positional index.
//
// Score vectors of length one are regression outputs and reported as-is.
// Two-class vectors apply the threshold to the score margin; larger vectors
// take the argmax label.
func WritePredictions(dir, task string, labels []string, logits [][]float32, threshold float64) (err error) {
	tsvPath := fileutil.PathJoinSafe(dir, fmt.Sprintf("%s.tsv", task))
	out, err := fileutil.NewFileWriter(tsvPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err := fmt.Fprintf(out, "index\tprediction\n"); err != nil {
		return err
	}
	for i, scores := range logits {
		var label string
		switch {
		case len(scores) == 1:
			label = fmt.Sprintf("%g", scores[0])
		case len(scores) == 2:
			if float64(scores[1]-scores[0]) > threshold {
				label = labels[1]
			} else {
				label = labels[0]
			}
		case len(scores) > 2:
			label = labels[argmax(scores)]
		default:
			return fmt.Errorf("prediction %d: empty score vector", i)
		}
		if _, err := fmt.Fprintf(out, "%d\t%s\n", i, label); err != nil {
			return err
		}
	}

	raw, err := jsoniter.MarshalIndent(logits, "", "    ")
	if err != nil {
		return err
	}
	jsonPath := fileutil.PathJoinSafe(dir, fmt.Sprintf("%s.logits.json", task))
	jsonOut, err := fileutil.NewFileWriter(jsonPath)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, jsonOut.Close())
	}()
	_, err = jsonOut.Write(raw)
	return err
}

func argmax(scores []float32) int {
	best := 0
	for i, score := range scores {
		if score > scores[best] {
			best = i
		}
	}
	return best
}
