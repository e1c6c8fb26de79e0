// Package backend invokes the verification backends and reduces their
// diagnostic output to statuses.
package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rustproof/rustproof/internal/domain"
)

// Runner verifies one entry point against a compiled artifact. Invocations
// are independent of each other; failures local to one entry surface as
// StatusUnknown in the outcome, never as a harness-level error.
type Runner interface {
	Verify(ctx context.Context, artifact string, entry domain.EntryPoint) domain.Outcome
}

// OutputDirName derives the per-entry isolated output directory from the
// entry's display name. Distinct entries never collide, so concurrent
// invocations can share one parent directory.
func OutputDirName(displayName string) string {
	return "kleeout-" + strings.NewReplacer("::", "_", "/", "_").Replace(displayName)
}

// KLEE drives the symbolic-execution backend, once per entry point.
type KLEE struct {
	Binary     string
	OutBase    string   // parent of the per-entry output directories
	ExtraFlags []string // backend-specific flags, passed through unmodified
	Threshold  int      // relay lines whose rank is below this
	Out        io.Writer
}

// Verify launches the backend against one entry point, streams its
// diagnostics, and classifies them. The process exit code is deliberately
// not consulted; classification is output-driven.
func (k *KLEE) Verify(ctx context.Context, artifact string, entry domain.EntryPoint) (outcome domain.Outcome) {
	start := time.Now()
	outcome = domain.Outcome{Entry: entry, Status: domain.StatusUnknown, Stats: domain.Statistics{}}
	defer func() { outcome.Duration = time.Since(start) }()

	outDir := filepath.Join(k.OutBase, OutputDirName(entry.DisplayName))
	if err := os.RemoveAll(outDir); err != nil {
		log.Printf("[klee] %s: unusable output directory %s: %v", entry.DisplayName, outDir, err)
		return outcome
	}

	args := []string{
		"--entry-point=" + entry.MangledName,
		"--libc=klee",
		"--silent-klee-assume",
		"--disable-verify",
		"--output-dir=" + outDir,
	}
	args = append(args, k.ExtraFlags...)
	args = append(args, artifact)

	cmd := exec.CommandContext(ctx, k.Binary, args...)
	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()
	if err := cmd.Start(); err != nil {
		log.Printf("[klee] %s: backend failed to start: %v", entry.DisplayName, err)
		return outcome
	}

	// Keep stdout and stderr as two ordered line sequences. Classification
	// only reads stderr; both are relayed through the rank filter.
	var wg sync.WaitGroup
	var stderrLines []string
	wg.Add(2)
	go func() {
		defer wg.Done()
		k.drain(stdout, nil)
	}()
	go func() {
		defer wg.Done()
		k.drain(stderr, &stderrLines)
	}()
	wg.Wait()
	cmd.Wait()

	exp := ScanExpectation(stderrLines)
	outcome.Status = Classify(stderrLines, exp)
	outcome.Stats = ExtractStats(stderrLines)
	if outcome.Status == domain.StatusUnknown && k.Threshold > 1 {
		log.Printf("[klee] %s: could not determine status from backend output", entry.DisplayName)
	}
	return outcome
}

// drain consumes one output stream line by line, collecting into lines when
// non-nil and relaying each line subject to the verbosity threshold. The
// relay is a pure filter; it has no bearing on classification.
func (k *KLEE) drain(r io.Reader, lines *[]string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if lines != nil {
			*lines = append(*lines, line)
		}
		if k.Out != nil && Rank(line) < k.Threshold {
			fmt.Fprintln(k.Out, line)
		}
	}
}
