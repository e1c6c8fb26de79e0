package cargo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
)

// TestLister yields the declared test names of a crate.
type TestLister interface {
	ListTests(ctx context.Context, crateDir string) ([]string, error)
}

// testLineRE matches one entry of the test-listing output, "<name>: test",
// tolerating trailing whitespace.
var testLineRE = regexp.MustCompile(`^(\S+): test\s*$`)

// CargoTestLister obtains the declared-test list from the build tool's
// test-listing facility.
type CargoTestLister struct {
	Cargo string
}

func (l *CargoTestLister) ListTests(ctx context.Context, crateDir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, l.Cargo, "test", "--", "--list")
	cmd.Dir = crateDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("cargo test --list: %w", err)
	}
	return parseTestList(out), nil
}

func parseTestList(out []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if m := testLineRE.FindStringSubmatch(sc.Text()); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}
