// Package harness runs an external program over a directory of test cases
// and compares its answers with the reference solver.
//
// The program is invoked as `executable [args...] input output` once per
// case. A case fails when the program exits non-zero, runs past the timeout,
// leaves no output file or answers differently; none of these stop the run.
package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"elgamal_vectors/log"
	"elgamal_vectors/revhex"
	"elgamal_vectors/solver"
)

// DefaultTimeout bounds a single invocation of the program.
const DefaultTimeout = 60 * time.Second

// waitDelay bounds how long a killed program's descendants may hold its
// stderr pipe open after a timeout.
const waitDelay = time.Second

// maxStderr is how much of the program's stderr is kept in an error.
const maxStderr = 512

var (
	// ErrTimeout means the program did not finish within the timeout.
	ErrTimeout = errors.New("harness: timed out")
	// ErrExit means the program could not run or exited with a non-zero
	// status.
	ErrExit = errors.New("harness: program failed")
	// ErrMissingOutput means the program exited cleanly but left no output
	// file.
	ErrMissingOutput = errors.New("harness: no output file")
	// ErrMismatch means the output differs from the expected answer.
	ErrMismatch = errors.New("harness: wrong answer")
)

// Mismatch is a single differing output field, numbered from 1. Got is
// empty when the program wrote fewer fields than expected.
type Mismatch struct {
	Field    int
	Expected string
	Got      string
}

func (m Mismatch) String() string {
	got := m.Got
	if got == "" {
		got = "<missing>"
	}
	return fmt.Sprintf("field %d: expected %s, got %s", m.Field, m.Expected, got)
}

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Name       string
	Passed     bool
	Mismatches []Mismatch
	// Err is set for every failed case and wraps one of the Err* values of
	// this package, or the reference solver's error.
	Err     error
	Elapsed time.Duration
}

// Runner runs an external program over test cases.
type Runner struct {
	Executable string
	// Args are passed before the input and output paths.
	Args    []string
	Timeout time.Duration
	Clock   clockwork.Clock
	Logger  log.Logger
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r *Runner) clock() clockwork.Clock {
	if r.Clock == nil {
		return clockwork.NewRealClock()
	}
	return r.Clock
}

func (r *Runner) logger() log.Logger {
	if r.Logger == nil {
		return log.DefaultLogger()
	}
	return r.Logger
}

// RunCase runs the program on one input file of the given kind.
func (r *Runner) RunCase(ctx context.Context, kind solver.Kind, input string) (res CaseResult) {
	clock := r.clock()
	start := clock.Now()
	res.Name = strings.TrimSuffix(filepath.Base(input), ".inp")
	defer func() {
		res.Elapsed = clock.Since(start)
	}()

	expected, err := reference(kind, input)
	if err != nil {
		res.Err = fmt.Errorf("reference solver: %w", err)
		return res
	}

	output := strings.TrimSuffix(input, ".inp") + "_temp.out"
	_ = os.Remove(output)
	defer os.Remove(output)

	if err := r.invoke(ctx, input, output); err != nil {
		res.Err = err
		return res
	}

	got, err := os.ReadFile(output)
	if errors.Is(err, os.ErrNotExist) {
		res.Err = ErrMissingOutput
		return res
	} else if err != nil {
		res.Err = err
		return res
	}

	res.Mismatches, err = compare(expected, got)
	if err != nil {
		res.Err = err
		return res
	}
	if len(res.Mismatches) > 0 {
		res.Err = fmt.Errorf("%w: %s", ErrMismatch, res.Mismatches[0])
		return res
	}
	res.Passed = true
	return res
}

func (r *Runner) invoke(ctx context.Context, input, output string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	args := append(append([]string{}, r.Args...), input, output)
	cmd := exec.CommandContext(ctx, r.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, r.timeout())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[len(msg)-maxStderr:]
		}
		if msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrExit, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrExit, err)
	}
	return nil
}

func reference(kind solver.Kind, input string) ([]string, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out bytes.Buffer
	if err := solver.Solve(kind, f, &out); err != nil {
		return nil, err
	}
	return revhex.ReadLines(&out)
}

// compare matches the expected fields against the program output, ignoring
// case, blank lines and trailing extra lines.
func compare(expected []string, output []byte) ([]Mismatch, error) {
	got, err := revhex.ReadLines(bytes.NewReader(output))
	if err != nil {
		return nil, err
	}
	var mm []Mismatch
	for i, want := range expected {
		if i >= len(got) {
			mm = append(mm, Mismatch{Field: i + 1, Expected: want})
			continue
		}
		if !revhex.Equal(want, got[i]) {
			mm = append(mm, Mismatch{Field: i + 1, Expected: want, Got: got[i]})
		}
	}
	return mm, nil
}

// Report summarizes a run.
type Report struct {
	Kind    solver.Kind
	Cases   []CaseResult
	Passed  int
	Failed  int
	Elapsed time.Duration
}

// Err aggregates the errors of every failed case, or returns nil.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, c := range r.Cases {
		if !c.Passed {
			result = multierror.Append(result, fmt.Errorf("%s: %w", c.Name, c.Err))
		}
	}
	return result.ErrorOrNil()
}

// SuccessRate is the fraction of passed cases, 0 for an empty report.
func (r *Report) SuccessRate() float64 {
	if len(r.Cases) == 0 {
		return 0
	}
	return float64(r.Passed) / float64(len(r.Cases))
}

// Cases lists the test_*.inp files of dir in name order.
func Cases(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "test_*.inp"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Run executes every case of dir. It stops early only when ctx is done.
func (r *Runner) Run(ctx context.Context, kind solver.Kind, dir string) (*Report, error) {
	files, err := Cases(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("harness: no test_*.inp files in %s", dir)
	}

	logger := r.logger().Named("harness").With("kind", kind.String())
	clock := r.clock()
	start := clock.Now()
	rep := &Report{Kind: kind}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			rep.Elapsed = clock.Since(start)
			return rep, err
		}
		res := r.RunCase(ctx, kind, f)
		rep.Cases = append(rep.Cases, res)
		if res.Passed {
			rep.Passed++
			logger.Infow("case passed", "case", res.Name, "elapsed", res.Elapsed)
		} else {
			rep.Failed++
			logger.Warnw("case failed", "case", res.Name, "elapsed", res.Elapsed, "err", res.Err)
		}
	}
	rep.Elapsed = clock.Since(start)
	logger.Infow("run finished", "passed", rep.Passed, "cases", len(rep.Cases))
	return rep, nil
}
