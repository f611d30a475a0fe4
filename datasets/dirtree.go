package datasets

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"github.com/textmine/seqprep/util/fileutil"
)

// DirTreeAdapter reads datasets laid out as one subdirectory per label, with
// every file under a label directory becoming one example. Directory listing
// order is never trusted: both labels and file names are sorted so the same
// tree always yields the same example sequence.
type DirTreeAdapter struct {
	TaskName  string
	LabelList []string          // also the subdirectory names, in id order
	SplitDirs map[Split]string  // split -> subdirectory of the data dir
	Extension string            // only files with this suffix are read
}

func (a *DirTreeAdapter) Name() string { return a.TaskName }

func (a *DirTreeAdapter) Labels() []string { return a.LabelList }

func (a *DirTreeAdapter) Examples(dataDir string, split Split) ([]*Example, LoadStats, error) {
	splitDir, ok := a.SplitDirs[split]
	if !ok {
		return nil, LoadStats{}, fmt.Errorf("task %s has no %s split", a.TaskName, split)
	}

	var examples []*Example
	var stats LoadStats
	for _, label := range a.LabelList {
		labelDir := fileutil.PathJoinSafe(dataDir, splitDir, label)
		names, err := fileutil.List(labelDir)
		if err != nil {
			return nil, stats, fmt.Errorf("listing %s: %w", labelDir, err)
		}
		slices.Sort(names)

		for _, name := range names {
			if !strings.HasSuffix(name, a.Extension) {
				continue
			}
			stats.Rows++
			content, err := fileutil.ReadFileBytes(fileutil.PathJoinSafe(labelDir, name))
			if err != nil {
				stats.Skipped++
				log.Warn().Str("task", a.TaskName).Str("file", name).Err(err).
					Msg("unreadable example file, skipped")
				continue
			}
			text := strings.ReplaceAll(strings.TrimSpace(string(content)), "<br />", " ")
			examples = append(examples, &Example{
				GUID:  guid(split, len(examples)),
				TextA: text,
				Label: strPtr(label),
			})
		}
	}
	return examples, stats, nil
}

func newIMDB() *DirTreeAdapter {
	return &DirTreeAdapter{
		TaskName:  "imdb",
		LabelList: []string{"neg", "pos"},
		SplitDirs: map[Split]string{
			Train: "train",
			Dev:   "test",
			Test:  "test",
		},
		Extension: ".txt",
	}
}

func init() {
	Register(newTNews())
	Register(newIFlytek())
	Register(newXNLI())
	Register(newAFQMC())
	Register(newINews())
	Register(newTHUCNews())
	Register(newLCQMC())
	Register(newBQ())
	Register(newMNLI(false))
	Register(newMNLI(true))
	Register(newSTSB())
	Register(newIMDB())
}
