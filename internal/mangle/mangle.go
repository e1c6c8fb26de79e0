// Package mangle implements the legacy Rust symbol-name encoding used to
// address test functions inside a compiled bitcode artifact, and the reverse
// matching of a binary symbol table against requested test paths.
package mangle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SymbolPrefix marks a mangled function symbol in the binary symbol table.
const SymbolPrefix = "_ZN"

// PathSeparator joins the segments of a display name.
const PathSeparator = "::"

// Mangle encodes a path as a length-prefixed concatenation: each segment is
// rendered as its decimal byte length followed by the segment text.
func Mangle(path []string) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteString(strconv.Itoa(len(seg)))
		b.WriteString(seg)
	}
	return b.String()
}

// Demangle is the inverse scan of Mangle: it repeatedly reads a decimal run
// and consumes that many following bytes as one segment, stopping at the
// first position with no valid length prefix. The unconsumed tail is
// returned alongside the recovered segments.
func Demangle(encoded string) ([]string, string) {
	var segs []string
	rest := encoded
	for {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 {
			return segs, rest
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil || i+n > len(rest) {
			return segs, rest
		}
		segs = append(segs, rest[i:i+n])
		rest = rest[i+n:]
	}
}

// MissingSymbolsError reports every requested entry path that no symbol in
// the table resolves to. It is returned complete, never one path at a time,
// since a missing symbol indicates a build/test mismatch the user has to fix
// as a whole.
type MissingSymbolsError struct {
	Paths []string
}

func (e *MissingSymbolsError) Error() string {
	return fmt.Sprintf("symbols not found in artifact: %s", strings.Join(e.Paths, ", "))
}

// Match scans a symbol table for the mangled counterparts of the requested
// paths. A symbol qualifies when it carries the SymbolPrefix and, after
// stripping the prefix and dropping the outermost segment (the crate
// qualifier) and the innermost one (the trailing hash marker), re-encoding
// what remains reproduces one of the requested paths. The result maps each
// display name (segments joined with PathSeparator) to its full symbol.
//
// If any requested path has no qualifying symbol, Match fails with a
// MissingSymbolsError listing exactly the absent paths, sorted.
func Match(symbols []string, requested [][]string) (map[string]string, error) {
	want := make(map[string]string, len(requested))
	for _, path := range requested {
		want[Mangle(path)] = strings.Join(path, PathSeparator)
	}

	found := make(map[string]string, len(requested))
	for _, sym := range symbols {
		if !strings.HasPrefix(sym, SymbolPrefix) {
			continue
		}
		segs, _ := Demangle(strings.TrimPrefix(sym, SymbolPrefix))
		if len(segs) < 3 {
			continue
		}
		inner := segs[1 : len(segs)-1]
		if name, ok := want[Mangle(inner)]; ok {
			found[name] = sym
		}
	}

	if len(found) < len(want) {
		var missing []string
		for _, name := range want {
			if _, ok := found[name]; !ok {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		return nil, &MissingSymbolsError{Paths: missing}
	}
	return found, nil
}
