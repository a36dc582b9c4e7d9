package sqlmap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"time"
)

var (
	// ErrTimeout marks a run that exceeded its deadline and was killed.
	ErrTimeout = errors.New("sqlmap run timed out")
	// ErrProcess marks a run whose process could not start or exited
	// non-zero without producing output.
	ErrProcess = errors.New("sqlmap process failed")
)

// Output from the tool is captured whole but bounded; a runaway child
// cannot exhaust the scanner's memory.
const maxOutputBytes = 4 << 20

// Runner invokes the external deep-SQLi tool as a killable child
// process with a hard timeout and captured combined output.
type Runner struct {
	bin     string
	timeout time.Duration
}

func NewRunner(bin string, timeout time.Duration) *Runner {
	if bin == "" {
		bin = "sqlmap"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Runner{bin: bin, timeout: timeout}
}

// Run executes the tool and returns its combined output. A timeout is
// reported as ErrTimeout, never as a partial success. A non-zero exit
// that still produced output is not an error: the tool exits non-zero
// for unreachable targets and the output is the evidence.
func (r *Runner) Run(ctx context.Context, args []string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log.Printf("[sqlmap] running %s with %d args", r.bin, len(args))
	cmd := exec.CommandContext(runCtx, r.bin, args...)

	output, err := cmd.CombinedOutput()
	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes]
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	if err != nil {
		if len(output) == 0 {
			return "", fmt.Errorf("%w: %v", ErrProcess, err)
		}
		log.Printf("[sqlmap] exited with error, keeping output: %v", err)
	}

	return string(output), nil
}
