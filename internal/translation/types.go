package translation

import (
	"context"
	"fmt"
	"strings"

	"lrc-translator/internal/parser"
)

// Mode selects how a document is sent to the backend.
type Mode string

const (
	// ModeLineByLine issues one call per timestamped line per target language.
	ModeLineByLine Mode = "line"
	// ModeWholeContent issues a single call carrying the whole document.
	ModeWholeContent Mode = "whole"
)

// ParseMode accepts the short and long spellings of each mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line", "line-by-line", "lines":
		return ModeLineByLine, nil
	case "whole", "whole-content", "document":
		return ModeWholeContent, nil
	default:
		return "", fmt.Errorf("unknown translation mode %q (want line or whole)", s)
	}
}

// Completion is a single two-message exchange with the backend.
type Completion struct {
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Backend performs completions. ChatClient is the HTTP implementation; tests
// substitute stubs.
type Backend interface {
	Complete(ctx context.Context, comp Completion) (string, error)
}

// Request is the text to translate and where to translate it to.
type Request struct {
	SourceText      string
	TargetLanguages []string
	Model           string
	MaxTokens       int
}

// Result is the outcome of one backend call. Err is set when the backend
// refused the call, in which case TranslatedText holds the error marker.
type Result struct {
	TargetLanguage string
	TranslatedText string
	Err            *BackendError
}

// RunResult is the reassembled output of a translation run.
type RunResult struct {
	Mode Mode
	// Lines holds the output lines in input order. In whole-content mode it
	// is the response split into lines.
	Lines         []string
	Output        string
	Calls         int
	BackendErrors int
}

// ExpectedCalls returns how many backend calls a run over doc will make.
func ExpectedCalls(mode Mode, doc *parser.Document, languages int) int {
	if mode == ModeWholeContent {
		return 1
	}
	return doc.TimestampedCount() * languages
}
