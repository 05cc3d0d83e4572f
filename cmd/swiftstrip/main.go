package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swiftstrip/internal/audit"
	"swiftstrip/internal/config"
	"swiftstrip/internal/report"
	"swiftstrip/internal/rewrite"
	"swiftstrip/internal/scanner"
	"swiftstrip/internal/watch"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

var (
	// Global flags
	flagVerbose     bool
	flagConfig      string
	flagRoot        string
	flagPlatform    string
	flagCounterpart string
	flagJobs        int
	flagExts        []string
	flagPurge       []string
	flagExclude     []string
	flagQuiet       bool
	flagNoColor     bool

	// Per-command flags
	flagDryRun bool
	flagAudit  string

	logger *zap.Logger
)

// exitCodeError carries a process exit code through cobra's error return.
type exitCodeError int

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

var rootCmd = &cobra.Command{
	Use:   "swiftstrip",
	Short: "Strip platform-conditional blocks from Swift sources",
	Long: `swiftstrip rewrites Swift sources in place, removing the code guarded
by #if os(<platform>) conditions for one platform while keeping the
branches for the others. Imports that only the removed code needed are
deleted, files without the platform marker are left untouched, and a
file with unbalanced conditionals is reported and skipped.

Configuration is read from ` + config.DefaultManifest + ` under the root
when present; SWIFTSTRIP_* environment variables and flags override it.

Examples:
  swiftstrip strip --root Sources
  swiftstrip check --root Sources
  swiftstrip watch --root Sources`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger. The terminal report goes to stdout; zap is
		// kept at warn so it stays quiet unless asked for.
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if flagVerbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var stripCmd = &cobra.Command{
	Use:   "strip [paths...]",
	Short: "Remove target-platform blocks from source files in place",
	Long: `Processes the given paths, the configured path list, or every candidate
file under the root, rewriting each file in place. Exits 1 when any
file fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := runPipeline(cmd, args, flagDryRun)
		if err != nil {
			return err
		}
		if s.Failed > 0 {
			return exitCodeError(1)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report files that still carry target-platform blocks",
	Long: `Runs the same pipeline as strip without writing anything. Exits 1 when
any file would change or fails, so it can gate CI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := runPipeline(cmd, args, true)
		if err != nil {
			return err
		}
		if s.Processed > 0 || s.Failed > 0 {
			return exitCodeError(1)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the root and strip files as they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		printer := &report.Printer{Out: cmd.OutOrStdout(), Quiet: flagQuiet, Color: !flagNoColor}

		pipe := rewrite.New(cfg, logger)
		if flagAudit != "" {
			alog, err := audit.Open(flagAudit, logger)
			if err != nil {
				return err
			}
			defer alog.Close()
			pipe.Audit = alog
		}

		w, err := watch.New(cfg, pipe, func(results []rewrite.Result) {
			for _, r := range results {
				printer.Result(r)
			}
		}, logger)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes\n", cfg.Root)
		return w.Run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the swiftstrip version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "swiftstrip "+version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&flagConfig, "config", "", "Config manifest path (default <root>/"+config.DefaultManifest+")")
	pf.StringVarP(&flagRoot, "root", "r", ".", "Directory paths are resolved against")
	pf.StringVarP(&flagPlatform, "platform", "p", "macOS", "Platform whose guarded blocks are removed")
	pf.StringVar(&flagCounterpart, "counterpart", "iOS", "Platform paired against the target in if/else splits")
	pf.IntVarP(&flagJobs, "jobs", "j", 0, "Files processed in parallel (default: CPU count, capped at 8)")
	pf.StringSliceVar(&flagExts, "ext", nil, "File extensions scanned for candidates (default .swift)")
	pf.StringSliceVar(&flagPurge, "purge-import", nil, "Module names whose whole-line imports are deleted (default AppKit)")
	pf.StringSliceVar(&flagExclude, "exclude", nil, "Directory names skipped during a scan")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress unchanged-file lines")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	stripCmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Report what would change without writing")
	stripCmd.Flags().StringVar(&flagAudit, "audit", "", "Append a JSONL audit trail of rewrites to this file")
	watchCmd.Flags().StringVar(&flagAudit, "audit", "", "Append a JSONL audit trail of rewrites to this file")

	rootCmd.AddCommand(stripCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig layers the manifest under flag overrides and validates the
// result. Only flags the user actually set override the manifest.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = filepath.Join(flagRoot, config.DefaultManifest)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("root") {
		cfg.Root = flagRoot
	}
	if f.Changed("platform") {
		cfg.Platform = flagPlatform
	}
	if f.Changed("counterpart") {
		cfg.Counterpart = flagCounterpart
	}
	if f.Changed("jobs") {
		cfg.Jobs = flagJobs
	}
	if f.Changed("ext") {
		exts := make([]string, 0, len(flagExts))
		for _, e := range flagExts {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		cfg.Extensions = exts
	}
	if f.Changed("purge-import") {
		cfg.PurgeImports = flagPurge
	}
	if f.Changed("exclude") {
		cfg.Exclude = flagExclude
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collectPaths resolves the files to process: explicit arguments first,
// then the configured list, then a recursive scan. The second return
// reports whether a scan happened.
func collectPaths(cfg *config.Config, args []string) ([]string, bool, error) {
	if len(args) > 0 {
		return scanner.Resolve(cfg.Root, args), false, nil
	}
	if len(cfg.Paths) > 0 {
		return scanner.Resolve(cfg.Root, cfg.Paths), false, nil
	}
	files, err := scanner.Walk(cfg.Root, cfg.Extensions, cfg.Exclude)
	if err != nil {
		return nil, false, err
	}
	return files, true, nil
}

func runPipeline(cmd *cobra.Command, args []string, dryRun bool) (report.Summary, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return report.Summary{}, err
	}

	printer := &report.Printer{Out: cmd.OutOrStdout(), Quiet: flagQuiet, Color: !flagNoColor, DryRun: dryRun}
	pipe := rewrite.New(cfg, logger)
	pipe.DryRun = dryRun

	if flagAudit != "" && !dryRun {
		alog, err := audit.Open(flagAudit, logger)
		if err != nil {
			return report.Summary{}, err
		}
		defer alog.Close()
		pipe.Audit = alog
	}

	paths, scanned, err := collectPaths(cfg, args)
	if err != nil {
		return report.Summary{}, err
	}
	if scanned {
		printer.Found(len(paths))
	}

	results := pipe.Run(cmd.Context(), paths)
	for _, r := range results {
		printer.Result(r)
	}
	s := report.Tally(results)
	printer.Summary(s)
	return s, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var code exitCodeError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "swiftstrip:", err)
		os.Exit(2)
	}
}
