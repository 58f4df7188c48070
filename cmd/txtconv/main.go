// Package main provides the CLI entrypoint for txtconv.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/txtconv/internal/app"
	"github.com/verte-zerg/txtconv/internal/config"
	"github.com/verte-zerg/txtconv/internal/convert"
	"github.com/verte-zerg/txtconv/internal/format"
	"github.com/verte-zerg/txtconv/internal/model"
	"github.com/verte-zerg/txtconv/internal/prompt"
	"github.com/verte-zerg/txtconv/internal/report"
	"github.com/verte-zerg/txtconv/internal/resolve"
	"github.com/verte-zerg/txtconv/internal/sniff"
	"github.com/verte-zerg/txtconv/internal/stats"
	"github.com/verte-zerg/txtconv/internal/store"
)

const defaultHistoryLast = 10

type rootOptions struct {
	input     string
	output    string
	format    string
	allExt    string
	suffix    string
	dir       string
	recursive bool
	showExt   string
	stat      bool
	rem       bool
	color     bool
	overwrite bool
	threshold float64
	verbose   bool
	history   bool

	// defaultFormat comes from the config file and only fills in the target
	// once the flags have chosen a conversion mode.
	defaultFormat string
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{history: true}
	rootCmd := &cobra.Command{
		Use:           "txtconv",
		Short:         "Detect and convert text file encodings",
		Long:          "Detect the encoding of text files, with Polish windows-1250 and iso-8859-2 disambiguation, and convert them to a target format.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRootCmd(cmd, opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input file to analyze")
	flags.StringVarP(&opts.output, "output", "o", "", "output file after conversion")
	flags.StringVar(&opts.format, "format", "", "target format ("+strings.Join(format.Names(), ", ")+")")
	flags.StringVar(&opts.allExt, "all", "", "convert all files with extension EXT")
	flags.StringVar(&opts.suffix, "suffix", "", "custom suffix for output files")
	flags.StringVarP(&opts.dir, "dir", "d", ".", "source directory")
	flags.BoolVarP(&opts.recursive, "recursive", "r", false, "search recursively")
	flags.StringVar(&opts.showExt, "show", "", "show encodings for files with extension EXT")
	flags.BoolVar(&opts.stat, "stat", false, "show file size and date with --show")
	flags.BoolVar(&opts.rem, "rem", false, "align columns with --show")
	flags.BoolVar(&opts.color, "color", false, "enable colorized output")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "overwrite output files without asking")
	flags.Float64Var(&opts.threshold, "threshold", resolve.DefaultThreshold, "detector confidence needed to skip fallback checks (0-1]")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug details to stderr")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newFormatsCmd())

	return rootCmd
}

func runRootCmd(cmd *cobra.Command, opts *rootOptions) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConfig(cmd, opts, fileCfg)

	runCfg, err := buildRunConfig(opts)
	if err != nil {
		return err
	}
	if opts.threshold <= 0 || opts.threshold > 1 {
		return fmt.Errorf("--threshold must be in (0, 1]")
	}

	logger := newLogger(opts.verbose)
	printer := report.New(cmd.OutOrStdout(), opts.color)
	confirmer := prompt.New(os.Stdin, cmd.OutOrStdout(), prompt.WithNotify(func(paths []string) {
		if len(paths) > 1 {
			printer.Conflicts(paths)
		}
	}))

	appOpts := app.Options{
		Sniffer:   sniff.NewChardet(),
		Threshold: opts.threshold,
		Confirmer: confirmer,
		Logger:    logger,
	}
	if opts.history {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			logger.Warn("history disabled", "err", err)
		} else {
			defer func() {
				if cerr := st.Close(); cerr != nil {
					logErrf("failed to close db: %v\n", cerr)
				}
			}()
			appOpts.Journal = st
		}
	}

	a := app.New(afero.NewOsFs(), appOpts)
	showOpts := report.ShowOptions{
		Root:      runCfg.Directory,
		Extension: runCfg.Extension,
		Recursive: runCfg.Recursive,
		Stats:     runCfg.IncludeStats,
		Align:     opts.rem,
	}

	switch runCfg.Mode {
	case model.ModeDetectOne:
		out, err := a.DetectOne(runCfg.SourcePath)
		if err != nil {
			return withHint(err)
		}
		printer.Detect(out)
	case model.ModeConvertOne:
		out, err := a.ConvertOne(runCfg)
		if err != nil {
			return withHint(err)
		}
		printer.Outcome(out, nil)
	case model.ModeConvertBatch:
		res, err := a.ConvertBatch(runCfg)
		if err != nil {
			return err
		}
		printer.Batch(res, showOpts)
	case model.ModeShowBatch:
		res, err := a.ShowBatch(runCfg)
		if err != nil {
			return err
		}
		printer.Show(res.Total, showOpts)
	}
	if err := printer.Err(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// buildRunConfig picks the mode from the flags: --show wins over --all, which
// wins over -i. A plain -i is detection; -i converts only with --format or -o.
func buildRunConfig(opts *rootOptions) (model.RunConfig, error) {
	cfg := model.RunConfig{
		Directory: opts.dir,
		Recursive: opts.recursive,
		Overwrite: opts.overwrite,
		Suffix:    opts.suffix,
	}

	switch {
	case opts.showExt != "":
		cfg.Mode = model.ModeShowBatch
		cfg.Extension = opts.showExt
		cfg.IncludeStats = opts.stat
		return cfg, nil
	case opts.allExt != "":
		cfg.Mode = model.ModeConvertBatch
		cfg.Extension = opts.allExt
	case opts.input != "":
		cfg.SourcePath = opts.input
		if opts.format == "" && opts.output == "" {
			cfg.Mode = model.ModeDetectOne
			return cfg, nil
		}
		cfg.Mode = model.ModeConvertOne
		cfg.DestPath = opts.output
	default:
		return cfg, fmt.Errorf("no action specified: use -i, --all or --show (see --help)")
	}

	name := opts.format
	if name == "" {
		name = opts.defaultFormat
	}
	if name == "" {
		if cfg.Mode == model.ModeConvertBatch {
			return cfg, fmt.Errorf("--all requires --format")
		}
		return cfg, fmt.Errorf("single file conversion needs -i, -o and --format")
	}
	target, err := format.Parse(name)
	if err != nil {
		return cfg, fmt.Errorf("invalid format %q (supported: %s)", name, strings.Join(format.Names(), ", "))
	}
	cfg.Format = string(target)
	return cfg, nil
}

// withHint appends a suggestion for the errors a user can act on.
func withHint(err error) error {
	switch {
	case format.IsUnsupportedCharacter(err):
		return fmt.Errorf("%w\nhint: pick a Unicode target such as UTF8 or UTF16LE", err)
	case format.IsUnsupportedFormat(err):
		return fmt.Errorf("%w\nhint: run `txtconv formats` to list targets", err)
	case convert.IsUnreadableSource(err):
		return fmt.Errorf("%w\nhint: check that the file exists and is readable", err)
	}
	return err
}

func applyConfig(cmd *cobra.Command, opts *rootOptions, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "format", &opts.defaultFormat, fileCfg.Convert.Format)
	applyStringConfig(cmd, "suffix", &opts.suffix, fileCfg.Convert.Suffix)
	applyBoolConfig(cmd, "overwrite", &opts.overwrite, fileCfg.Convert.Overwrite)
	applyBoolConfig(cmd, "stat", &opts.stat, fileCfg.Show.Stat)
	applyBoolConfig(cmd, "rem", &opts.rem, fileCfg.Show.Align)
	applyFloatConfig(cmd, "threshold", &opts.threshold, fileCfg.Detect.Threshold)
	applyBoolConfig(cmd, "color", &opts.color, fileCfg.Output.Color)
	if fileCfg.History.Enabled != nil {
		opts.history = *fileCfg.History.Enabled
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	var last int
	var runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryCmd(cmd, last, runID)
		},
	}
	cmd.Flags().IntVar(&last, "last", defaultHistoryLast, "limit to last N runs")
	cmd.Flags().StringVar(&runID, "run", "", "show the files of one run (id or id prefix)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, last int, runID string) error {
	if last <= 0 {
		return fmt.Errorf("--last must be > 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	printer := report.New(cmd.OutOrStdout(), false)
	if runID != "" {
		d, err := stats.BuildRunDetail(context.Background(), st, runID)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		printer.RunDetail(d)
	} else {
		h, err := stats.BuildHistory(context.Background(), st, last)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		printer.History(h)
	}
	if err := printer.Err(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported target formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer := report.New(cmd.OutOrStdout(), false)
			printer.Formats(formatRows())
			if err := printer.Err(); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}
}

func formatRows() [][]string {
	all := format.All()
	rows := make([][]string, len(all))
	for i, f := range all {
		r := f.Recipe()
		bom := "-"
		if len(r.BOM) > 0 {
			bom = fmt.Sprintf("% X", r.BOM)
		}
		rows[i] = []string{string(f), r.Charset, bom}
	}
	return rows
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
