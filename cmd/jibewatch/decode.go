package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/logstream"
	"github.com/five82/jibewatch/internal/logtail"
	"github.com/five82/jibewatch/internal/prefs"
	"github.com/five82/jibewatch/internal/render"
	"github.com/five82/jibewatch/internal/ui"
)

// decodeOptions drive one decode invocation.
type decodeOptions struct {
	path       string
	tail       int
	follow     bool
	interval   time.Duration
	collapse   bool
	timestamps bool
	noColor    bool
	width      int
}

func newDecodeCmd(flags *globalFlags) *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode <file|->",
		Short: "Decode a jibe mandate log and print its blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			if opts.follow && opts.path == "-" {
				return errors.New("--follow needs a file, not stdin")
			}
			userPrefs, err := prefs.Load(flags.prefsPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (using default prefs)\n", err)
			}
			return runDecode(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, userPrefs)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.tail, "tail", 0, "decode only the last N lines (0 means all)")
	f.BoolVarP(&opts.follow, "follow", "f", false, "keep printing blocks as the file grows")
	f.DurationVar(&opts.interval, "interval", time.Second, "poll interval for --follow")
	f.BoolVar(&opts.collapse, "collapse", false, "fold stack traces and commands as the dashboard does")
	f.BoolVarP(&opts.timestamps, "timestamps", "t", false, "prefix lines with their timestamp")
	f.BoolVar(&opts.noColor, "no-color", false, "disable styling")
	f.IntVar(&opts.width, "width", 0, "truncate rows to this many columns (default: terminal width)")
	return cmd
}

func runDecode(ctx context.Context, in io.Reader, out, errOut io.Writer, opts decodeOptions, userPrefs prefs.Prefs) error {
	renderer := newDecodeRenderer(out, opts, userPrefs)
	width := determineWidth(out, opts.width)

	if opts.follow {
		return followFile(ctx, out, errOut, opts, renderer, width)
	}

	text, err := readInput(in, opts)
	if err != nil {
		return err
	}
	stream := logstream.NewStream(streamName(opts.path), zerolog.Nop())
	// Malformed lines are rendered, not fatal; they are reported via Stats.
	_ = stream.AppendText(text)

	writeRows(out, renderer.Render(stream.Blocks(), -1), width)
	reportStats(errOut, stream.Stats())
	return nil
}

func readInput(in io.Reader, opts decodeOptions) (string, error) {
	var text string
	switch {
	case opts.path == "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	default:
		if _, err := os.Stat(opts.path); err != nil {
			return "", err
		}
		var err error
		if opts.tail > 0 {
			text, err = logtail.Read(opts.path, opts.tail)
		} else {
			text, err = readAll(opts.path)
		}
		if err != nil {
			return "", err
		}
	}
	// A finished log may lack the final newline.
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}

func readAll(path string) (string, error) {
	var b strings.Builder
	for {
		chunk, err := logtail.ReadFrom(path, int64(b.Len()))
		if err != nil {
			return "", err
		}
		if chunk == "" {
			return b.String(), nil
		}
		b.WriteString(chunk)
	}
}

// followFile prints each block once it can no longer change, and the
// trailing open block when ctx ends.
func followFile(ctx context.Context, out, errOut io.Writer, opts decodeOptions, renderer *render.Renderer, width int) error {
	if _, err := os.Stat(opts.path); err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.TimeOnly}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	name := streamName(opts.path)
	f := follow.New("local", logtail.File{Path: opts.path}, logger)
	f.Track(name, jibe.StatusRunning)

	interval := opts.interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printed := 0
	flush := func(all bool) logstream.Stats {
		view, _ := f.View(name)
		end := len(view.Blocks)
		if !all && end > 0 {
			end--
		}
		if end > printed {
			writeRows(out, renderer.Render(view.Blocks[printed:end], -1), width)
			printed = end
		}
		return view.Stats
	}

	for {
		if err := f.Refresh(ctx, name); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("read log")
		}
		flush(false)
		select {
		case <-ctx.Done():
			reportStats(errOut, flush(true))
			return nil
		case <-ticker.C:
		}
	}
}

func newDecodeRenderer(out io.Writer, opts decodeOptions, userPrefs prefs.Prefs) *render.Renderer {
	r := &render.Renderer{
		Styles:         render.PlainStyles(),
		Collapse:       &render.Collapse{ExpandTraces: true, ExpandCommands: true},
		ShowTimestamps: opts.timestamps,
	}
	if opts.collapse {
		r.Collapse = &render.Collapse{
			ExpandTraces:   userPrefs.ExpandTraces,
			ExpandCommands: userPrefs.ExpandCommands,
		}
	}
	if useColor(out, opts.noColor) {
		theme := ui.GetTheme(userPrefs.Theme)
		r.Styles = theme.LogStyles()
		if userPrefs.HighlightCommands {
			r.Highlighter = render.NewHighlighter(theme.SyntaxStyle)
		}
	}
	return r
}

func writeRows(w io.Writer, rows []render.Row, width int) {
	for _, row := range rows {
		line := row.Text
		if width > 0 {
			line = ansi.Truncate(line, width, "…")
		}
		fmt.Fprintln(w, line)
	}
}

func reportStats(w io.Writer, stats logstream.Stats) {
	if stats.MalformedLines == 0 && stats.ProtocolViolations == 0 {
		return
	}
	fmt.Fprintf(w, "decoded %d lines: %d malformed, %d protocol violations\n",
		stats.Lines, stats.MalformedLines, stats.ProtocolViolations)
}

func streamName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func useColor(out io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func determineWidth(out io.Writer, width int) int {
	if width > 0 {
		return width
	}
	file, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(file.Fd()) {
		return 0
	}
	if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
		return w
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 0
}
