package backend

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rustproof/rustproof/internal/domain"
)

// Expectation records a should_panic annotation emitted by the program under
// verification. A nil *Expectation means no panic is expected. Without a
// substring any panic message satisfies the expectation; with one, the panic
// message must contain it.
type Expectation struct {
	Substring    string
	HasSubstring bool
}

// Satisfies reports whether a panic line meets the expectation.
func (e *Expectation) Satisfies(line string) bool {
	if e == nil {
		return false
	}
	if !e.HasSubstring {
		return true
	}
	return strings.Contains(line, e.Substring)
}

var (
	expectSubstrRE = regexp.MustCompile(`VERIFIER_EXPECT: should_panic\(expected = "([^"]*)"\)`)
	expectPlainRE  = regexp.MustCompile(`VERIFIER_EXPECT: should_panic\s*$`)
)

// ScanExpectation scans the full diagnostic stream once, before
// classification, for an expect annotation line.
func ScanExpectation(lines []string) *Expectation {
	for _, line := range lines {
		if m := expectSubstrRE.FindStringSubmatch(line); m != nil {
			return &Expectation{Substring: m[1], HasSubstring: true}
		}
		if expectPlainRE.MatchString(line) {
			return &Expectation{}
		}
	}
	return nil
}

// rule is one entry of the ordered classification rule list. apply returns
// the resulting status, or ok=false when the matched line is informational
// and scanning should move on to the next line.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(line string, exp *Expectation) (status domain.Status, ok bool)
}

func fixed(s domain.Status) func(string, *Expectation) (domain.Status, bool) {
	return func(string, *Expectation) (domain.Status, bool) { return s, true }
}

func skip(string, *Expectation) (domain.Status, bool) { return "", false }

// classifyRules is the classification priority, kept as a first-class
// ordered list. The first line on which a rule yields a status decides the
// entry's status; everything after it is ignored.
var classifyRules = []rule{
	{"halt-timer", regexp.MustCompile(`KLEE: HaltTimer invoked`), fixed(domain.StatusTimeout)},
	{"halt-dump", regexp.MustCompile(`KLEE: halting execution, dumping remaining states`), fixed(domain.StatusTimeout)},
	{"link-failure", regexp.MustCompile(`KLEE: ERROR: Could not link`), fixed(domain.StatusUnknown)},
	{"missing-symbol", regexp.MustCompile(`KLEE: ERROR: Unable to load symbol`), fixed(domain.StatusUnknown)},
	{"unreachable", regexp.MustCompile(`KLEE: ERROR: .*unreachable`), fixed(domain.StatusReachable)},
	{"error-overflow", regexp.MustCompile(`KLEE: ERROR: .*overflow`), fixed(domain.StatusOverflow)},
	{"backend-error", regexp.MustCompile(`KLEE: ERROR: `), fixed(domain.StatusError)},
	{"expect-note", regexp.MustCompile(`VERIFIER_EXPECT: `), skip},
	{"panic", regexp.MustCompile(`panicked at`), func(line string, exp *Expectation) (domain.Status, bool) {
		if exp.Satisfies(line) {
			return domain.StatusVerified, true
		}
		return domain.StatusError, true
	}},
	{"assertion", regexp.MustCompile(`assertion failed|verification failed`), fixed(domain.StatusError)},
	{"arith-overflow", regexp.MustCompile(`with overflow`), fixed(domain.StatusOverflow)},
	{"backtrace-hint", regexp.MustCompile("note: run with `RUST_BACKTRACE=1`"), fixed(domain.StatusError)},
	{"completion", regexp.MustCompile(`KLEE: done: total instructions`), func(_ string, exp *Expectation) (domain.Status, bool) {
		if exp != nil {
			// expected panic never occurred
			return domain.StatusError, true
		}
		return domain.StatusVerified, true
	}},
}

// Classify reduces a stderr stream to one status. Lines are consumed
// top-to-bottom exactly once; within a line the rules fire in list order.
// A stream no rule applies to degrades to StatusUnknown.
func Classify(lines []string, exp *Expectation) domain.Status {
	for _, line := range lines {
		for _, r := range classifyRules {
			if !r.re.MatchString(line) {
				continue
			}
			if status, ok := r.apply(line, exp); ok {
				return status
			}
			break
		}
	}
	return domain.StatusUnknown
}

var statRE = regexp.MustCompile(`KLEE: done:\s+(.+?)\s*=\s*(\d+)\s*$`)

// ExtractStats collects every "done: <metric> = <integer>" summary line.
// The scan is independent of classification and never affects status.
func ExtractStats(lines []string) domain.Statistics {
	stats := make(domain.Statistics)
	for _, line := range lines {
		m := statRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		stats[m[1]] = n
	}
	return stats
}

// Rank assigns a diagnostic line its relay importance: 0 for error and panic
// detail, 1 for warnings and summary lines, 2 for backend banter. A line is
// relayed only when its rank is below the active verbosity threshold.
func Rank(line string) int {
	switch {
	case strings.Contains(line, "KLEE: ERROR"),
		strings.Contains(line, "panicked at"),
		strings.Contains(line, "assertion failed"),
		strings.Contains(line, "verification failed"),
		strings.Contains(line, "with overflow"):
		return 0
	case strings.HasPrefix(line, "KLEE: WARNING"),
		strings.HasPrefix(line, "KLEE: done"),
		strings.HasPrefix(line, "KLEE: HaltTimer"),
		strings.HasPrefix(line, "KLEE: halting"):
		return 1
	case strings.HasPrefix(line, "KLEE: "):
		return 2
	default:
		return 1
	}
}
