// Package recorder persists episode summaries produced by the experiment
// harness.
package recorder

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/types"
	"github.com/zeu5/evo-rl-tuning/util"
)

// FileRecorder appends one JSON line per episode
type FileRecorder struct {
	path string
	lock *sync.Mutex
}

var _ types.Recorder = &FileRecorder{}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{
		path: path,
		lock: new(sync.Mutex),
	}
}

func (f *FileRecorder) Path() string {
	return f.path
}

func (f *FileRecorder) Record(_ context.Context, r *types.EpisodeRecord) error {
	bs, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding episode record")
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return util.AppendToFile(f.path, string(bs))
}

func (f *FileRecorder) Close() error {
	return nil
}
