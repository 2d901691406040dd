package history

import (
	"context"
	"time"

	"lrc-translator/internal/textutil"
	"lrc-translator/internal/translation"

	"github.com/google/uuid"
)

// Run is one completed translation run.
type Run struct {
	ID            string
	Source        string
	Mode          string
	Model         string
	Languages     []string
	InputHash     string
	Calls         int
	BackendErrors int
	Output        string
	CreatedAt     time.Time
}

// Recorder persists runs. A nil Recorder disables history.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// NewRun builds a history record from a finished driver run.
func NewRun(source, input string, opts translation.Options, res *translation.RunResult) Run {
	return Run{
		ID:            uuid.NewString(),
		Source:        source,
		Mode:          string(res.Mode),
		Model:         opts.Model,
		Languages:     append([]string(nil), opts.TargetLanguages...),
		InputHash:     textutil.Hash(input),
		Calls:         res.Calls,
		BackendErrors: res.BackendErrors,
		Output:        res.Output,
		CreatedAt:     time.Now().UTC(),
	}
}
