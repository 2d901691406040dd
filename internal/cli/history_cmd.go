package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lrc-translator/internal/config"
	"lrc-translator/internal/textutil"

	"github.com/spf13/cobra"
)

func historyCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previous translation runs stored in PostgreSQL",
	}
	cmd.AddCommand(historyListCmd(root))
	cmd.AddCommand(historyShowCmd(root))
	return cmd
}

func historyListCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			store, err := requireHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.CreatedAt.Local().Format(time.DateTime),
					textutil.Truncate(r.Source, 40),
					r.Mode,
					strings.Join(r.Languages, ", "),
					strconv.Itoa(r.Calls),
					strconv.Itoa(r.BackendErrors),
				})
			}
			headers := []string{"ID", "Created", "Source", "Mode", "Languages", "Calls", "Errors"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

func historyShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the translated output of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			store, err := requireHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.Output)
			return nil
		},
	}
}
