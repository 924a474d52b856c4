package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/five82/jibewatch/internal/config"
	"github.com/five82/jibewatch/internal/jibe"
)

func newRunsCmd(flags *globalFlags) *cobra.Command {
	var (
		limit      int
		offset     int
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client, err := jibe.NewClient(cfg.APIBase, jibe.Options{
				UserAgent:         cfg.UserAgent,
				RequestsPerSecond: cfg.RequestsPerSecond,
			})
			if err != nil {
				return err
			}
			runs, err := client.FetchRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs, strings.ToLower(formatFlag))
		},
	}

	f := cmd.Flags()
	f.IntVar(&limit, "limit", 20, "number of runs to list (0 means backend default)")
	f.IntVar(&offset, "offset", 0, "number of newest runs to skip")
	f.StringVar(&formatFlag, "format", "table", "output format: table or json")
	return cmd
}

func writeRuns(w io.Writer, runs []jibe.Run, format string) error {
	switch format {
	case "", "table":
		writeRunsTable(w, runs)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeRunsTable(w io.Writer, runs []jibe.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Run", "Started", "Duration", "Status"})

	for _, r := range runs {
		started := "-"
		if t := r.Started(); !t.IsZero() {
			started = t.Format(time.DateTime)
		}
		tw.AppendRow(table.Row{r.Key(), started, formatDuration(r.Duration()), string(r.Status)})
	}
	if len(runs) == 0 {
		tw.AppendRow(table.Row{"(no runs)", "-", "-", "-"})
	}

	tw.Render()
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
