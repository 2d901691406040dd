package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lrc-translator/internal/config"
	"lrc-translator/internal/filewalker"
	"lrc-translator/internal/history"
	"lrc-translator/internal/parser"
	"lrc-translator/internal/translation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultOutputDir = "translated"

type translateOptions struct {
	text      string
	apiKey    string
	baseURL   string
	model     string
	langs     []string
	mode      string
	maxTokens int
	timeout   int
	output    string
	stdout    bool
	stream    bool
}

func translateCmd(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [file.lrc | directory | -]",
		Short: "Translate an .lrc file, a directory of .lrc files, or pasted lyrics",
		Long: `Translates every timestamped line into each target language and writes
"[mm:ss.cc] translation1 / translation2" lines, copying all other lines unchanged.
With --mode whole the entire document is sent in a single request instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			opts.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			store := openHistory(ctx, cfg)
			var recorder history.Recorder
			if store != nil {
				defer store.Close()
				recorder = store
			}

			t := &translator{
				cfg:      cfg,
				backend:  translation.NewChatClient(cfg.ClientConfig()),
				recorder: recorder,
				opts:     opts,
				stdin:    cmd.InOrStdin(),
				stdout:   cmd.OutOrStdout(),
				stderr:   cmd.ErrOrStderr(),
			}
			return t.run(ctx, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "Lyrics to translate instead of a file")
	f.StringVar(&opts.apiKey, "api-key", "", "API key for the completion endpoint")
	f.StringVar(&opts.baseURL, "base-url", "", "Base URL of the OpenAI-compatible API")
	f.StringVar(&opts.model, "model", "", "Model name")
	f.StringSliceVarP(&opts.langs, "lang", "l", nil, "Target language (repeatable, order is kept)")
	f.StringVar(&opts.mode, "mode", "", "Translation mode: line or whole")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "Token ceiling per request for the selected mode")
	f.IntVar(&opts.timeout, "timeout", 0, "Per-request timeout in seconds")
	f.StringVarP(&opts.output, "output", "o", "", "Output file, or output directory for directory input")
	f.BoolVar(&opts.stdout, "stdout", false, "Write the translated lyrics to stdout instead of a file")
	f.BoolVar(&opts.stream, "stream", false, "Print each translated line to stdout as soon as it is ready")

	return cmd
}

// apply overlays command-line flags onto the loaded configuration.
func (o *translateOptions) apply(cfg *config.Config) {
	if o.apiKey != "" {
		cfg.APIKey = o.apiKey
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.model != "" {
		cfg.Model = o.model
	}
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if langs := config.SplitList(strings.Join(o.langs, ",")); len(langs) > 0 {
		cfg.TargetLanguages = langs
	}
	if o.timeout > 0 {
		cfg.RequestTimeout = time.Duration(o.timeout) * time.Second
	}
	if o.maxTokens > 0 {
		if mode, err := translation.ParseMode(cfg.Mode); err == nil && mode == translation.ModeWholeContent {
			cfg.DocumentMaxTokens = o.maxTokens
		} else {
			cfg.LineMaxTokens = o.maxTokens
		}
	}
}

type translator struct {
	cfg      *config.Config
	backend  translation.Backend
	recorder history.Recorder
	opts     *translateOptions
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

func (t *translator) run(ctx context.Context, args []string) error {
	lrc := parser.NewLRCParser()

	switch {
	case t.opts.text != "":
		if len(args) > 0 {
			return errors.New("pass either a file argument or --text, not both")
		}
		return t.translateOne(ctx, lrc.ParseString(t.opts.text), "pasted", t.outputFile())
	case len(args) == 0:
		return errors.New("please provide an .lrc file, a directory, or --text")
	case args[0] == "-":
		data, err := io.ReadAll(t.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		content, err := parser.Decode(data)
		if err != nil {
			return fmt.Errorf("decode stdin: %w", err)
		}
		return t.translateOne(ctx, lrc.ParseString(content), "stdin", t.outputFile())
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return t.translateDir(ctx, args[0])
	}

	doc, err := lrc.Parse(args[0])
	if err != nil {
		return err
	}
	return t.translateOne(ctx, doc, args[0], t.outputFile())
}

func (t *translator) outputFile() string {
	if t.opts.output != "" {
		return t.opts.output
	}
	return config.DefaultOutputFile
}

// translateDir translates every .lrc file under inputDir one after another.
func (t *translator) translateDir(ctx context.Context, inputDir string) error {
	w := filewalker.NewWalker()
	entries, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", inputDir).Msg("No .lrc files found")
		return nil
	}

	outputDir := t.opts.output
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	for _, entry := range entries {
		doc, err := w.ParseFile(entry)
		if err != nil {
			return err
		}
		outPath, err := filewalker.OutputPath(inputDir, outputDir, entry.Path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := t.translateOne(ctx, doc, entry.Path, outPath); err != nil {
			return err
		}
	}

	log.Info().
		Int("files", len(entries)).
		Str("output", outputDir).
		Msg("Directory translation complete")
	return nil
}

func (t *translator) translateOne(ctx context.Context, doc *parser.Document, source, outPath string) error {
	driverOpts := t.cfg.DriverOptions()
	total := translation.ExpectedCalls(driverOpts.Mode, doc, len(driverOpts.TargetLanguages))

	log.Info().
		Str("source", source).
		Str("mode", string(driverOpts.Mode)).
		Strs("languages", driverOpts.TargetLanguages).
		Int("lines", len(doc.Lines)).
		Int("planned_calls", total).
		Msg("Translating lyrics")

	bar := newProgress(t.stderr, total, filepath.Base(source))

	var options []translation.Option
	options = append(options, translation.WithCallHandler(func(translation.Result) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}))
	if t.opts.stream {
		options = append(options, translation.WithLineHandler(func(_ int, line string) {
			fmt.Fprintln(t.stdout, line)
		}))
	}

	driver := translation.NewDriver(t.backend, driverOpts, options...)
	res, err := driver.Run(ctx, doc)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("translate %s: %w", source, err)
	}

	if t.recorder != nil {
		if err := t.recorder.Record(ctx, history.NewRun(source, doc.RawText(), driverOpts, res)); err != nil {
			log.Warn().Err(err).Msg("Failed to record run")
		}
	}

	switch {
	case t.opts.stdout && !t.opts.stream:
		fmt.Fprintln(t.stdout, res.Output)
	case !t.opts.stdout:
		if err := os.WriteFile(outPath, []byte(res.Output), 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
	}

	ev := log.Info()
	if res.BackendErrors > 0 {
		ev = log.Warn()
	}
	ev.Str("source", source).
		Int("calls", res.Calls).
		Int("backend_errors", res.BackendErrors).
		Str("output", outputLabel(t.opts.stdout, outPath)).
		Msg("Lyrics translated")
	return nil
}

func outputLabel(toStdout bool, path string) string {
	if toStdout {
		return "stdout"
	}
	return path
}
