package cargo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// SymbolReader lists the defined function symbols of a bitcode artifact.
type SymbolReader interface {
	Symbols(ctx context.Context, artifact string) ([]string, error)
}

// NmReader reads symbol tables with llvm-nm. Output lines have the form
// "<address> <type-char> <symbol>"; only function symbols (type t or T) are
// relevant to entry-point matching.
type NmReader struct {
	Nm string
}

func (r *NmReader) Symbols(ctx context.Context, artifact string) ([]string, error) {
	cmd := exec.CommandContext(ctx, r.Nm, "--defined-only", artifact)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Nm, artifact, err)
	}
	return parseSymbolTable(out), nil
}

func parseSymbolTable(out []byte) []string {
	var syms []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 {
			continue
		}
		if fields[1] != "t" && fields[1] != "T" {
			continue
		}
		syms = append(syms, fields[2])
	}
	return syms
}
