package translation

import (
	"context"
	"errors"
	"fmt"

	"lrc-translator/internal/parser"
	"lrc-translator/internal/textutil"

	"github.com/rs/zerolog/log"
)

const (
	DefaultLineMaxTokens     = 256
	DefaultDocumentMaxTokens = 2048
)

// Options is the immutable configuration of a Driver.
type Options struct {
	Model             string
	TargetLanguages   []string
	Mode              Mode
	LineMaxTokens     int
	DocumentMaxTokens int
}

// Option customizes the driver.
type Option func(*Driver)

// WithLineHandler registers a callback invoked for every output line as soon
// as it is complete, in input order.
func WithLineHandler(fn func(index int, line string)) Option {
	return func(d *Driver) {
		d.onLine = fn
	}
}

// WithCallHandler registers a callback invoked after every backend call.
func WithCallHandler(fn func(Result)) Option {
	return func(d *Driver) {
		d.onCall = fn
	}
}

// Driver sends parsed lyrics to a Backend one call at a time.
type Driver struct {
	backend Backend
	prompts *PromptBuilder
	opts    Options

	onLine func(index int, line string)
	onCall func(Result)
}

// NewDriver creates a driver. Zero token bounds fall back to the defaults.
func NewDriver(backend Backend, opts Options, options ...Option) *Driver {
	if opts.Mode == "" {
		opts.Mode = ModeLineByLine
	}
	if opts.LineMaxTokens <= 0 {
		opts.LineMaxTokens = DefaultLineMaxTokens
	}
	if opts.DocumentMaxTokens <= 0 {
		opts.DocumentMaxTokens = DefaultDocumentMaxTokens
	}
	opts.TargetLanguages = append([]string(nil), opts.TargetLanguages...)

	d := &Driver{
		backend: backend,
		prompts: NewPromptBuilder(),
		opts:    opts,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Options returns the effective options after defaults were applied.
func (d *Driver) Options() Options {
	return d.opts
}

// Run translates doc according to the configured mode.
func (d *Driver) Run(ctx context.Context, doc *parser.Document) (*RunResult, error) {
	switch d.opts.Mode {
	case ModeWholeContent:
		return d.TranslateDocument(ctx, doc)
	case ModeLineByLine:
		return d.TranslateLines(ctx, doc)
	default:
		return nil, fmt.Errorf("unknown translation mode %q", d.opts.Mode)
	}
}

// TranslateLines translates every timestamped line into each target language
// in order. Backend refusals are embedded as markers; any other failure stops
// the run.
func (d *Driver) TranslateLines(ctx context.Context, doc *parser.Document) (*RunResult, error) {
	res := &RunResult{
		Mode:  ModeLineByLine,
		Lines: make([]string, 0, len(doc.Lines)),
	}

	for i, line := range doc.Lines {
		if !line.IsTimestamped() {
			d.emit(res, i, line.Raw)
			continue
		}

		texts := make([]string, 0, len(d.opts.TargetLanguages))
		for _, lang := range d.opts.TargetLanguages {
			r, err := d.translate(ctx, Request{
				SourceText:      line.Text,
				TargetLanguages: []string{lang},
				Model:           d.opts.Model,
				MaxTokens:       d.opts.LineMaxTokens,
			}, d.prompts.LineSystemPrompt(lang))
			if err != nil {
				return nil, fmt.Errorf("translate line %d to %s: %w", i+1, lang, err)
			}
			res.Calls++
			if r.Err != nil {
				res.BackendErrors++
			}
			texts = append(texts, r.TranslatedText)
		}

		d.emit(res, i, parser.FormatTimestamped(line.Timestamp, texts))
	}

	res.Output = parser.JoinLines(res.Lines)
	log.Debug().
		Int("lines", len(res.Lines)).
		Int("calls", res.Calls).
		Int("backend_errors", res.BackendErrors).
		Msg("Line-by-line translation finished")
	return res, nil
}

// TranslateDocument sends the whole raw document in a single call and returns
// the response as opaque text.
func (d *Driver) TranslateDocument(ctx context.Context, doc *parser.Document) (*RunResult, error) {
	r, err := d.translate(ctx, Request{
		SourceText:      doc.RawText(),
		TargetLanguages: d.opts.TargetLanguages,
		Model:           d.opts.Model,
		MaxTokens:       d.opts.DocumentMaxTokens,
	}, d.prompts.DocumentSystemPrompt(d.opts.TargetLanguages))
	if err != nil {
		return nil, fmt.Errorf("translate document: %w", err)
	}

	res := &RunResult{Mode: ModeWholeContent, Calls: 1}
	if r.Err != nil {
		res.BackendErrors = 1
	}
	for i, line := range parser.SplitLines(r.TranslatedText) {
		d.emit(res, i, line)
	}
	res.Output = r.TranslatedText
	return res, nil
}

func (d *Driver) emit(res *RunResult, index int, line string) {
	res.Lines = append(res.Lines, line)
	if d.onLine != nil {
		d.onLine(index, line)
	}
}

// translate performs one backend call. A *BackendError is folded into the
// returned Result; every other error is returned.
func (d *Driver) translate(ctx context.Context, req Request, system string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lang := ""
	if len(req.TargetLanguages) == 1 {
		lang = req.TargetLanguages[0]
	}

	text, err := d.backend.Complete(ctx, Completion{
		Model:     req.Model,
		System:    system,
		User:      req.SourceText,
		MaxTokens: req.MaxTokens,
	})

	var backendErr *BackendError
	var r Result
	switch {
	case err == nil:
		r = Result{TargetLanguage: lang, TranslatedText: text}
	case errors.As(err, &backendErr):
		log.Debug().
			Int("status", backendErr.StatusCode).
			Str("text", textutil.Truncate(req.SourceText, 30)).
			Str("lang", lang).
			Msg("Backend rejected translation, embedding error marker")
		r = Result{TargetLanguage: lang, TranslatedText: backendErr.Marker(), Err: backendErr}
	default:
		return Result{}, err
	}

	if d.onCall != nil {
		d.onCall(r)
	}
	return r, nil
}
