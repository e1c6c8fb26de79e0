package cargo

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// verifyRustflags is the fixed flag set the verification build needs:
// whole-program LTO with embedded bitcode so a single linked artifact comes
// out, abort-on-panic, overflow checks, no vectorization (the backend cannot
// interpret vector instructions), and the cfg selecting verification code
// paths in the crate under test.
const verifyRustflags = "-Clto -Cembed-bitcode=yes --emit=llvm-bc " +
	"-Cpanic=abort -Coverflow-checks=on " +
	"-Cno-vectorize-loops -Cno-vectorize-slp --cfg=verify"

// startSymbols are the program-entry symbols that distinguish the linked
// artifact from per-dependency bitcode files sharing the same label prefix.
var startSymbols = []string{"main", "_main"}

// ArtifactError is a fatal configuration error from artifact location:
// either no plausible candidate exists or the build output is ambiguous.
type ArtifactError struct {
	Label      string
	Candidates []string
}

func (e *ArtifactError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no bitcode artifact found for %q; did you forget --tests?", e.Label)
	}
	return fmt.Sprintf("ambiguous build output for %q: %s", e.Label, strings.Join(e.Candidates, ", "))
}

// Builder drives the external cargo build step.
type Builder struct {
	Cargo   string
	Verbose int
}

// Build compiles the crate with the verification flag set. A non-zero exit
// from cargo is fatal; the raw build output is attributed, never parsed for
// status, and shown in full only at elevated verbosity.
func (b *Builder) Build(ctx context.Context, crateDir string, tests bool) error {
	args := []string{"build"}
	if tests {
		args = append(args, "--tests")
	}
	cmd := exec.CommandContext(ctx, b.Cargo, args...)
	cmd.Dir = crateDir
	cmd.Env = append(os.Environ(), "RUSTFLAGS="+verifyRustflags)

	out, err := cmd.CombinedOutput()
	if b.Verbose > 0 && len(out) > 0 {
		log.Printf("[build] cargo output:\n%s", out)
	}
	if err != nil {
		return fmt.Errorf("cargo build failed: %w (re-run with -v for build output)", err)
	}
	return nil
}

// FindArtifact locates the single linked bitcode artifact under the build
// output directory. Candidates match <label>*.bc under debug/deps and are
// kept only if their symbol table contains a program-entry symbol. Exactly
// one must survive; zero or several is a configuration error, never guessed
// around.
func (b *Builder) FindArtifact(ctx context.Context, targetDir, label string, symbols SymbolReader) (string, error) {
	pattern := filepath.Join(targetDir, "debug", "deps", label+"*.bc")
	candidates, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("globbing %s: %w", pattern, err)
	}

	var linked []string
	for _, path := range candidates {
		syms, err := symbols.Symbols(ctx, path)
		if err != nil {
			return "", fmt.Errorf("reading symbols of %s: %w", path, err)
		}
		if containsAny(syms, startSymbols) {
			linked = append(linked, path)
		}
	}

	if len(linked) != 1 {
		return "", &ArtifactError{Label: label, Candidates: linked}
	}
	return linked[0], nil
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
