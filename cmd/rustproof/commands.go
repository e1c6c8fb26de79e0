package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rustproof/rustproof/internal/backend"
	"github.com/rustproof/rustproof/internal/cargo"
	"github.com/rustproof/rustproof/internal/config"
	"github.com/rustproof/rustproof/internal/domain"
	"github.com/rustproof/rustproof/internal/entry"
	"github.com/rustproof/rustproof/internal/replay"
	"github.com/rustproof/rustproof/internal/report"
	"github.com/rustproof/rustproof/internal/sched"
	"github.com/rustproof/rustproof/internal/store"
	"github.com/rustproof/rustproof/internal/watch"
)

type verifyOptions struct {
	backendName  string
	verbose      int
	tests        bool
	testFilters  []string
	jobs         int
	backendFlags []string
	replayFailed bool
	clean        bool
	watchMode    bool
	crateDir     string
}

var verifyOpts verifyOptions

var verifyCmd = &cobra.Command{
	Use:   "verify [crate directory]",
	Short: "Compile a crate and verify its entry points",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		verifyOpts.crateDir = "."
		if len(args) == 1 {
			verifyOpts.crateDir = args[0]
		}
		// A test filter only makes sense against declared tests.
		if len(verifyOpts.testFilters) > 0 {
			verifyOpts.tests = true
		}

		cfg, err := config.Load(configFile())
		if err != nil {
			return err
		}
		applyConfigDefaults(&verifyOpts, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if verifyOpts.watchMode {
			return runWatch(ctx, cfg, verifyOpts)
		}

		agg, err := runVerify(ctx, cfg, verifyOpts)
		if err != nil {
			return err
		}
		if agg.Failed > 0 {
			os.Exit(1)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent verification runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := config.Load(configFile())
		if err != nil {
			return err
		}
		s, err := store.Open(cfg.History.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer s.Close()

		runs, err := s.RecentRuns(20)
		if err != nil {
			return err
		}
		printer := &report.Printer{Out: os.Stdout}
		printer.History(runs)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyOpts.backendName, "backend", "", "verification backend: klee or proptest")
	verifyCmd.Flags().CountVarP(&verifyOpts.verbose, "verbose", "v", "increase output verbosity")
	verifyCmd.Flags().BoolVar(&verifyOpts.tests, "tests", false, "verify the crate's declared tests instead of main")
	verifyCmd.Flags().StringArrayVar(&verifyOpts.testFilters, "test", nil, "only verify tests matching this prefix (repeatable, implies --tests)")
	verifyCmd.Flags().IntVar(&verifyOpts.jobs, "jobs", 0, "number of parallel backend invocations (0 = available parallelism)")
	verifyCmd.Flags().StringArrayVar(&verifyOpts.backendFlags, "backend-flags", nil, "extra flag passed through to the backend (repeatable)")
	verifyCmd.Flags().BoolVar(&verifyOpts.replayFailed, "replay", false, "replay recorded counterexamples of failing entries")
	verifyCmd.Flags().BoolVar(&verifyOpts.clean, "clean", false, "remove stale backend output directories before the run")
	verifyCmd.Flags().BoolVar(&verifyOpts.watchMode, "watch", false, "re-run verification when crate sources change")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// applyConfigDefaults fills in option values the flags left unset.
func applyConfigDefaults(opts *verifyOptions, cfg *config.Config) {
	if opts.backendName == "" {
		opts.backendName = cfg.Verify.Backend
	}
	if opts.jobs == 0 {
		opts.jobs = cfg.Verify.Jobs
	}
	if len(opts.backendFlags) == 0 {
		opts.backendFlags = cfg.Verify.BackendFlags
	}
}

// runVerify performs one complete verification run: build, enumerate,
// verify under the scheduler, report, record, and optionally replay.
func runVerify(ctx context.Context, cfg *config.Config, opts verifyOptions) (domain.Aggregate, error) {
	started := time.Now()

	md, err := cargo.ReadMetadata(ctx, cfg.Tools.Cargo, opts.crateDir)
	if err != nil {
		return domain.Aggregate{}, err
	}
	pkg, err := cargo.PackageName(opts.crateDir)
	if err != nil {
		return domain.Aggregate{}, err
	}
	label := cargo.CrateLabel(pkg)

	builder := &cargo.Builder{Cargo: cfg.Tools.Cargo, Verbose: opts.verbose}
	if err := builder.Build(ctx, opts.crateDir, opts.tests); err != nil {
		return domain.Aggregate{}, err
	}

	nm := &cargo.NmReader{Nm: cfg.Tools.LLVMNm}
	artifact, err := builder.FindArtifact(ctx, md.TargetDirectory, label, nm)
	if err != nil {
		return domain.Aggregate{}, err
	}
	if opts.verbose > 0 {
		log.Printf("[verify] artifact: %s", artifact)
	}

	if opts.clean {
		cleanOutputDirs(opts.crateDir)
	}

	var entries []domain.EntryPoint
	if opts.tests {
		enum := &entry.Enumerator{
			Lister:  &cargo.CargoTestLister{Cargo: cfg.Tools.Cargo},
			Symbols: nm,
		}
		entries, err = enum.TestEntries(ctx, opts.crateDir, artifact, opts.testFilters)
		if err != nil {
			return domain.Aggregate{}, err
		}
	} else {
		entries = entry.MainEntry()
	}

	var runner backend.Runner
	switch opts.backendName {
	case "klee":
		runner = &backend.KLEE{
			Binary:     cfg.Tools.Klee,
			OutBase:    opts.crateDir,
			ExtraFlags: opts.backendFlags,
			Threshold:  opts.verbose + 1,
			Out:        os.Stdout,
		}
	case "proptest":
		runner = &backend.Proptest{
			Cargo:     cfg.Tools.Cargo,
			CrateDir:  opts.crateDir,
			Features:  "verifier-proptest",
			Threshold: opts.verbose + 1,
			Out:       os.Stdout,
		}
	default:
		return domain.Aggregate{}, fmt.Errorf("unknown backend %q", opts.backendName)
	}

	printer := &report.Printer{Out: os.Stdout, Verbose: opts.verbose}
	results, agg := sched.Run(ctx, runner, artifact, entries, opts.jobs, printer.Result)
	printer.Summary(agg, time.Since(started))

	recordRun(cfg, opts, agg, results, started)

	if opts.replayFailed && agg.Failed > 0 {
		if err := replayFailures(ctx, opts, artifact, results); err != nil {
			log.Printf("[verify] replay: %v", err)
		}
	}
	return agg, nil
}

// recordRun persists the run to the history database. History is best
// effort: a storage failure must not fail an otherwise complete run.
func recordRun(cfg *config.Config, opts verifyOptions, agg domain.Aggregate, results []domain.Outcome, started time.Time) {
	if cfg.History.DatabasePath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.DatabasePath), 0755); err != nil {
		log.Printf("[verify] history: %v", err)
		return
	}
	s, err := store.Open(cfg.History.DatabasePath)
	if err != nil {
		log.Printf("[verify] history: %v", err)
		return
	}
	defer s.Close()

	run := &store.Run{
		ID:         uuid.NewString(),
		CrateDir:   opts.crateDir,
		Backend:    opts.backendName,
		Status:     agg.Status,
		Passed:     agg.Passed,
		Failed:     agg.Failed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := s.SaveRun(run, results); err != nil {
		log.Printf("[verify] history: %v", err)
	}
}

// replayFailures replays counterexamples of the failing entries, in a
// deterministic name order.
func replayFailures(ctx context.Context, opts verifyOptions, artifact string, results []domain.Outcome) error {
	var failing []domain.Outcome
	for _, o := range results {
		if !o.Status.Passed() {
			failing = append(failing, o)
		}
	}
	sort.Slice(failing, func(i, j int) bool {
		return failing[i].Entry.DisplayName < failing[j].Entry.DisplayName
	})

	r := &replay.Replayer{
		Program: replay.ExecutableForArtifact(artifact),
		Tests:   opts.tests,
		OutBase: opts.crateDir,
		Out:     os.Stdout,
	}
	for _, o := range failing {
		if err := r.Replay(ctx, o.Entry); err != nil {
			return err
		}
	}
	return nil
}

// cleanOutputDirs removes stale per-entry backend output directories from
// earlier runs.
func cleanOutputDirs(crateDir string) {
	stale, err := filepath.Glob(filepath.Join(crateDir, "kleeout-*"))
	if err != nil {
		return
	}
	for _, dir := range stale {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("[verify] clean: %v", err)
		}
	}
}

// runWatch runs verification once, then again on every source change until
// interrupted. The exit status reflects the interrupt, not the last run.
func runWatch(ctx context.Context, cfg *config.Config, opts verifyOptions) error {
	if _, err := runVerify(ctx, cfg, opts); err != nil {
		return err
	}

	rerun := make(chan []string, 1)
	w, err := watch.New(func(changed []string) {
		select {
		case rerun <- changed:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.AddCrate(opts.crateDir); err != nil {
		return err
	}
	w.Start(ctx)
	log.Printf("[watch] watching %s for changes", opts.crateDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-rerun:
			log.Printf("[watch] %d file(s) changed, re-verifying", len(changed))
			if _, err := runVerify(ctx, cfg, opts); err != nil {
				log.Printf("[watch] %v", err)
			}
		}
	}
}
