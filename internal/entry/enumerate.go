// Package entry enumerates the verifiable entry points of a compiled
// artifact and resolves them to mangled symbols.
package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rustproof/rustproof/internal/cargo"
	"github.com/rustproof/rustproof/internal/domain"
	"github.com/rustproof/rustproof/internal/mangle"
)

// ErrNoTests is returned when tests were explicitly requested but none
// survive listing and filtering.
var ErrNoTests = errors.New("no tests found")

// Enumerator obtains candidate entry points and resolves them against the
// artifact's symbol table.
type Enumerator struct {
	Lister  cargo.TestLister
	Symbols cargo.SymbolReader
}

// MainEntry is the sole entry point in single-entry mode. The program's main
// is addressed directly, without a symbol-table lookup.
func MainEntry() []domain.EntryPoint {
	return []domain.EntryPoint{{DisplayName: "main", MangledName: "main"}}
}

// TestEntries lists the crate's declared tests, applies the prefix filters,
// and resolves every surviving name through the symbol matcher in a single
// batch, so that lookup failures report the complete missing set at once.
func (e *Enumerator) TestEntries(ctx context.Context, crateDir, artifact string, filters []string) ([]domain.EntryPoint, error) {
	names, err := e.Lister.ListTests(ctx, crateDir)
	if err != nil {
		return nil, fmt.Errorf("listing tests: %w", err)
	}
	names = filterNames(names, filters)
	if len(names) == 0 {
		return nil, ErrNoTests
	}

	paths := make([][]string, len(names))
	for i, name := range names {
		paths[i] = strings.Split(name, mangle.PathSeparator)
	}

	symbols, err := e.Symbols.Symbols(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("reading symbol table: %w", err)
	}
	resolved, err := mangle.Match(symbols, paths)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.EntryPoint, len(names))
	for i, name := range names {
		entries[i] = domain.EntryPoint{DisplayName: name, MangledName: resolved[name]}
	}
	return entries, nil
}

// filterNames keeps the names matching any of the prefix selectors. An empty
// selector set keeps everything.
func filterNames(names, filters []string) []string {
	if len(filters) == 0 {
		return names
	}
	var kept []string
	for _, name := range names {
		for _, f := range filters {
			if strings.HasPrefix(name, f) {
				kept = append(kept, name)
				break
			}
		}
	}
	return kept
}
