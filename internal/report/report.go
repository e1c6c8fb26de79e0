// Package report renders per-entry results and the final run summary.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rustproof/rustproof/internal/domain"
	"github.com/rustproof/rustproof/internal/store"
)

var (
	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Printer writes human-readable run output. Per-entry lines are printed as
// results arrive, which is completion order, not submission order.
type Printer struct {
	Out     io.Writer
	Verbose int
}

// Result prints one entry's pass/fail line.
func (p *Printer) Result(o domain.Outcome) {
	name := o.Entry.DisplayName
	elapsed := dimStyle.Render("(" + o.Duration.Round(10*time.Millisecond).String() + ")")
	if o.Status.Passed() {
		fmt.Fprintf(p.Out, "%s %s %s\n", passStyle.Render("ok"), name, elapsed)
	} else {
		fmt.Fprintf(p.Out, "%s %s: %s %s\n", failStyle.Render("FAILED"), name, statusStyle.Render(string(o.Status)), elapsed)
	}
	if p.Verbose > 0 {
		if n, ok := o.Stats["total instructions"]; ok {
			fmt.Fprintf(p.Out, "  %s\n", dimStyle.Render(humanize.Comma(n)+" instructions"))
		}
	}
}

// Summary prints the final aggregate line.
func (p *Printer) Summary(agg domain.Aggregate, elapsed time.Duration) {
	verdict := passStyle.Render(string(domain.StatusVerified))
	if agg.Failed > 0 {
		verdict = failStyle.Render(string(agg.Status))
	}
	fmt.Fprintf(p.Out, "\n%s. %d passed; %d failed; finished in %s\n",
		verdict, agg.Passed, agg.Failed, elapsed.Round(10*time.Millisecond))
}

// History prints recent runs, newest first.
func (p *Printer) History(runs []*store.Run) {
	for _, r := range runs {
		verdict := passStyle.Render(string(r.Status))
		if r.Failed > 0 {
			verdict = failStyle.Render(string(r.Status))
		}
		fmt.Fprintf(p.Out, "%s  %s  %s  %d passed, %d failed  %s\n",
			r.ID[:8], verdict, r.Backend, r.Passed, r.Failed,
			dimStyle.Render(humanize.Time(r.StartedAt)))
	}
}
