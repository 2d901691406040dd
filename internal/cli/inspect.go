package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"lrc-translator/internal/config"
	"lrc-translator/internal/parser"
	"lrc-translator/internal/textutil"
	"lrc-translator/internal/translation"

	"github.com/spf13/cobra"
)

func inspectCmd(root *rootOptions) *cobra.Command {
	var langs []string

	cmd := &cobra.Command{
		Use:   "inspect <file.lrc>",
		Short: "Show line counts, tags and the planned number of API calls without translating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if l := config.SplitList(strings.Join(langs, ",")); len(l) > 0 {
				cfg.TargetLanguages = l
			}

			doc, err := parser.NewLRCParser().Parse(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, summaryRows(doc), []columnAlignment{alignLeft, alignRight}))

			if tags := doc.Metadata(); len(tags) > 0 {
				keys := make([]string, 0, len(tags))
				for k := range tags {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, tags[k]})
				}
				fmt.Fprintln(out, renderTable([]string{"Tag", "Value"}, rows, nil))
			}

			plan := planRows(doc, len(cfg.TargetLanguages))
			fmt.Fprintln(out, renderTable([]string{"Mode", "Languages", "Calls"}, plan, []columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&langs, "lang", "l", nil, "Target language (repeatable)")
	return cmd
}

// planRows lists the backend calls each mode would make for languages targets.
func planRows(doc *parser.Document, languages int) [][]string {
	modes := []translation.Mode{translation.ModeLineByLine, translation.ModeWholeContent}
	rows := make([][]string, 0, len(modes))
	for _, mode := range modes {
		rows = append(rows, []string{
			string(mode),
			strconv.Itoa(languages),
			strconv.Itoa(translation.ExpectedCalls(mode, doc, languages)),
		})
	}
	return rows
}

func summaryRows(doc *parser.Document) [][]string {
	timed := doc.TimestampedCount()
	rows := [][]string{
		{"File", filepath.Base(doc.FilePath)},
		{"Lines", strconv.Itoa(len(doc.Lines))},
		{"Timestamped", strconv.Itoa(timed)},
		{"Passthrough", strconv.Itoa(len(doc.Lines) - timed)},
	}

	var lyrics strings.Builder
	for _, line := range doc.Lines {
		if line.IsTimestamped() {
			lyrics.WriteString(line.Text)
			lyrics.WriteByte('\n')
		}
	}
	if det := textutil.DetectLanguage(lyrics.String()); det.Language != "" {
		lang := det.Language
		if !det.Reliable {
			lang += " (unreliable)"
		}
		rows = append(rows,
			[]string{"Language", lang},
			[]string{"Script", det.Script},
		)
	}
	return rows
}
