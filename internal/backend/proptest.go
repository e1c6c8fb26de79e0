package backend

import (
	"context"
	"errors"
	"io"
	"log"
	"os/exec"
	"time"

	"github.com/rustproof/rustproof/internal/domain"
)

// Proptest is the property-based testing backend: a plain cargo test
// pass-through. Its output is relayed but not classified against the
// diagnostic taxonomy; the exit code decides between VERIFIED and ERROR.
type Proptest struct {
	Cargo     string
	CrateDir  string
	Features  string
	Threshold int
	Out       io.Writer
}

func (p *Proptest) Verify(ctx context.Context, _ string, entry domain.EntryPoint) domain.Outcome {
	start := time.Now()
	outcome := domain.Outcome{Entry: entry, Status: domain.StatusUnknown, Stats: domain.Statistics{}}

	args := []string{"test"}
	if p.Features != "" {
		args = append(args, "--features", p.Features)
	}
	if entry.DisplayName != "main" {
		args = append(args, entry.DisplayName)
	}

	cmd := exec.CommandContext(ctx, p.Cargo, args...)
	cmd.Dir = p.CrateDir
	out, err := cmd.CombinedOutput()
	if p.Out != nil && p.Threshold > 1 && len(out) > 0 {
		p.Out.Write(out)
	}

	switch {
	case err == nil:
		outcome.Status = domain.StatusVerified
	case errors.As(err, new(*exec.ExitError)):
		outcome.Status = domain.StatusError
	default:
		log.Printf("[proptest] %s: backend failed to start: %v", entry.DisplayName, err)
	}
	outcome.Duration = time.Since(start)
	return outcome
}
