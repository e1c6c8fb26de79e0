// Package replay re-runs recorded counterexamples against the program so
// the user can see concrete failing values.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rustproof/rustproof/internal/backend"
	"github.com/rustproof/rustproof/internal/domain"
)

// KTestEnv is the environment variable the instrumented program reads the
// counterexample file path from.
const KTestEnv = "KTEST_FILE"

// Replayer feeds recorded counterexamples back into the program binary.
// Output is relayed verbatim with a per-entry prefix; no classification is
// applied, replay is display-only.
type Replayer struct {
	Program string // test binary or main binary
	Tests   bool   // pass the entry's name so the test binary runs just it
	OutBase string // parent of the per-entry backend output directories
	Out     io.Writer
}

// Counterexamples lists the recorded inputs for one entry, in deterministic
// sorted order.
func (r *Replayer) Counterexamples(entry domain.EntryPoint) ([]string, error) {
	dir := filepath.Join(r.OutBase, backend.OutputDirName(entry.DisplayName))
	files, err := filepath.Glob(filepath.Join(dir, "test*.ktest"))
	if err != nil {
		return nil, fmt.Errorf("globbing counterexamples in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Replay re-invokes the program once per recorded counterexample of the
// entry, with the counterexample bound through KTestEnv.
func (r *Replayer) Replay(ctx context.Context, entry domain.EntryPoint) error {
	files, err := r.Counterexamples(entry)
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Fprintf(r.Out, "%s: replaying %s\n", entry.DisplayName, filepath.Base(file))
		if err := r.replayOne(ctx, entry, file); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replayer) replayOne(ctx context.Context, entry domain.EntryPoint, file string) error {
	var args []string
	if r.Tests && entry.DisplayName != "main" {
		args = append(args, entry.DisplayName)
	}
	cmd := exec.CommandContext(ctx, r.Program, args...)
	cmd.Env = append(os.Environ(), KTestEnv+"="+file)

	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("replaying %s: %w", file, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); r.relay(entry.DisplayName, stdout) }()
	go func() { defer wg.Done(); r.relay(entry.DisplayName, stderr) }()
	wg.Wait()

	// A failing replay is the expected outcome, not an error.
	cmd.Wait()
	return nil
}

func (r *Replayer) relay(prefix string, stream io.Reader) {
	sc := bufio.NewScanner(stream)
	for sc.Scan() {
		fmt.Fprintf(r.Out, "%s: %s\n", prefix, sc.Text())
	}
}

// ExecutableForArtifact guesses the runnable binary cargo produced next to a
// bitcode artifact: the same deps path without the .bc extension.
func ExecutableForArtifact(artifact string) string {
	return strings.TrimSuffix(artifact, ".bc")
}
