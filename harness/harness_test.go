package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"elgamal_vectors/elgamal"
	"elgamal_vectors/log"
	"elgamal_vectors/solver"
)

// The test binary doubles as the program under test: with helperMode set it
// behaves as a solver selected by the mode instead of running the tests.
const (
	helperMode = "ELGAMALVEC_HARNESS_HELPER"
	helperKind = "ELGAMALVEC_HARNESS_KIND"
)

func TestMain(m *testing.M) {
	if mode := os.Getenv(helperMode); mode != "" {
		os.Exit(helper(mode, os.Args[1:]))
	}
	os.Exit(m.Run())
}

func helper(mode string, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: helper input output")
		return 2
	}
	in, out := args[0], args[1]
	kind, err := solver.ParseKind(os.Getenv(helperKind))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	switch mode {
	case "correct":
		if err := solver.SolveFile(kind, in, out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	case "lowercase":
		if err := solver.SolveFile(kind, in, out); err != nil {
			return 1
		}
		b, _ := os.ReadFile(out)
		_ = os.WriteFile(out, []byte("\n"+strings.ToLower(string(b))+"\nextra\n"), 0o600)
	case "garbled":
		_ = os.WriteFile(out, []byte("DEADBEEF\nA\n"), 0o600)
	case "short":
		if err := solver.SolveFile(kind, in, out); err != nil {
			return 1
		}
		b, _ := os.ReadFile(out)
		first := strings.SplitN(string(b), "\n", 2)[0]
		_ = os.WriteFile(out, []byte(first+"\n"), 0o600)
	case "exit":
		fmt.Fprintln(os.Stderr, "boom")
		return 3
	case "hang":
		time.Sleep(time.Minute)
	case "orphan":
		// a child that outlives us and keeps our stderr open
		child := exec.Command(os.Args[0], in, out)
		child.Env = append(os.Environ(), helperMode+"=hang")
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			return 1
		}
		time.Sleep(time.Minute)
	case "missing":
	default:
		return 2
	}
	return 0
}

// p = 23, g = 5, x = 6
var decryptCases = map[string]string{
	"test_01.inp": "71\n5\n6\nA\nE\n",
	"test_02.inp": "71\n5\n6\nA\n51\n",
	"test_03.inp": "71\n5\n6\n2\n1\n",
}

func writeCases(t *testing.T, cases map[string]string) string {
	dir := t.TempDir()
	for name, body := range cases {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func newRunner(t *testing.T, mode string, kind solver.Kind) *Runner {
	t.Setenv(helperMode, mode)
	t.Setenv(helperKind, kind.String())
	return &Runner{
		Executable: os.Args[0],
		Timeout:    10 * time.Second,
		Logger:     log.New(nil, log.ErrorLevel, false),
	}
}

func TestRunCorrect(t *testing.T) {
	dir := writeCases(t, decryptCases)
	r := newRunner(t, "correct", solver.Decrypt)

	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Len(t, rep.Cases, 3)
	require.Equal(t, 3, rep.Passed)
	require.Equal(t, 0, rep.Failed)
	require.NoError(t, rep.Err())
	require.Equal(t, 1.0, rep.SuccessRate())
	require.Equal(t, "test_01", rep.Cases[0].Name)
	require.Equal(t, "test_03", rep.Cases[2].Name)

	// the temporary output is cleaned up
	leftovers, err := filepath.Glob(filepath.Join(dir, "*_temp.out"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestRunCaseInsensitive(t *testing.T) {
	dir := writeCases(t, decryptCases)
	r := newRunner(t, "lowercase", solver.Decrypt)

	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Passed)
}

func TestRunVerify(t *testing.T) {
	dir := writeCases(t, map[string]string{
		"test_01.inp": "71\n5\n8\nA\nA\n41\n",
		"test_02.inp": "71\n5\n8\nA\nA\n51\n",
	})
	r := newRunner(t, "correct", solver.Verify)

	rep, err := r.Run(context.Background(), solver.Verify, dir)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Passed)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		mode string
		err  error
	}{
		{"garbled", ErrMismatch},
		{"short", ErrMismatch},
		{"exit", ErrExit},
		{"missing", ErrMissingOutput},
	}
	for _, test := range tests {
		t.Run(test.mode, func(t *testing.T) {
			dir := writeCases(t, decryptCases)
			r := newRunner(t, test.mode, solver.Decrypt)

			rep, err := r.Run(context.Background(), solver.Decrypt, dir)
			require.NoError(t, err)
			require.Len(t, rep.Cases, 3, "the run does not stop at the first failure")
			require.Equal(t, 3, rep.Failed)
			require.Equal(t, 0.0, rep.SuccessRate())
			for _, c := range rep.Cases {
				require.False(t, c.Passed)
				require.True(t, errors.Is(c.Err, test.err), "%s: %v", c.Name, c.Err)
			}
			require.Error(t, rep.Err())
			require.True(t, errors.Is(rep.Err(), test.err))
		})
	}
}

func TestMismatchDetails(t *testing.T) {
	dir := writeCases(t, map[string]string{"test_01.inp": decryptCases["test_01.inp"]})
	r := newRunner(t, "short", solver.Decrypt)

	res := r.RunCase(context.Background(), solver.Decrypt, filepath.Join(dir, "test_01.inp"))
	require.False(t, res.Passed)
	require.Equal(t, []Mismatch{{Field: 2, Expected: "A"}}, res.Mismatches)

	r = newRunner(t, "garbled", solver.Decrypt)
	res = r.RunCase(context.Background(), solver.Decrypt, filepath.Join(dir, "test_01.inp"))
	require.Equal(t, []Mismatch{{Field: 1, Expected: "8", Got: "DEADBEEF"}}, res.Mismatches)
	require.Contains(t, res.Err.Error(), "field 1: expected 8, got DEADBEEF")
}

func TestExitKeepsStderr(t *testing.T) {
	dir := writeCases(t, map[string]string{"test_01.inp": decryptCases["test_01.inp"]})
	r := newRunner(t, "exit", solver.Decrypt)

	res := r.RunCase(context.Background(), solver.Decrypt, filepath.Join(dir, "test_01.inp"))
	require.True(t, errors.Is(res.Err, ErrExit))
	require.Contains(t, res.Err.Error(), "boom")
}

func TestTimeout(t *testing.T) {
	dir := writeCases(t, map[string]string{
		"test_01.inp": decryptCases["test_01.inp"],
		"test_02.inp": decryptCases["test_02.inp"],
	})
	r := newRunner(t, "hang", solver.Decrypt)
	r.Timeout = 200 * time.Millisecond

	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Failed)
	for _, c := range rep.Cases {
		require.True(t, errors.Is(c.Err, ErrTimeout), "%v", c.Err)
		require.Less(t, c.Elapsed, 30*time.Second)
	}
}

func TestTimeoutWithOrphan(t *testing.T) {
	dir := writeCases(t, map[string]string{"test_01.inp": decryptCases["test_01.inp"]})
	r := newRunner(t, "orphan", solver.Decrypt)
	r.Timeout = 200 * time.Millisecond

	res := r.RunCase(context.Background(), solver.Decrypt, filepath.Join(dir, "test_01.inp"))
	require.False(t, res.Passed)
	require.True(t, errors.Is(res.Err, ErrTimeout), "%v", res.Err)
	require.Less(t, res.Elapsed, 30*time.Second)
}

func TestMalformedCaseDoesNotStopRun(t *testing.T) {
	dir := writeCases(t, map[string]string{
		"test_01.inp": decryptCases["test_01.inp"],
		"test_02.inp": "0\n5\n6\nA\nE\n",
		"test_03.inp": decryptCases["test_03.inp"],
	})
	r := newRunner(t, "correct", solver.Decrypt)

	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Len(t, rep.Cases, 3)
	require.Equal(t, 2, rep.Passed)
	require.Equal(t, 1, rep.Failed)
	require.False(t, rep.Cases[1].Passed)
	require.True(t, errors.Is(rep.Cases[1].Err, elgamal.ErrInvalidParams), "%v", rep.Cases[1].Err)
	require.Contains(t, rep.Cases[1].Err.Error(), "reference solver")
}

func TestMissingExecutable(t *testing.T) {
	dir := writeCases(t, decryptCases)
	r := &Runner{
		Executable: filepath.Join(dir, "does-not-exist"),
		Logger:     log.New(nil, log.ErrorLevel, false),
	}
	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Equal(t, 3, rep.Failed)
	require.True(t, errors.Is(rep.Err(), ErrExit))
}

func TestReferenceFailure(t *testing.T) {
	dir := writeCases(t, map[string]string{"test_01.inp": "71\n5\n"})
	r := newRunner(t, "correct", solver.Decrypt)

	res := r.RunCase(context.Background(), solver.Decrypt, filepath.Join(dir, "test_01.inp"))
	require.False(t, res.Passed)
	require.Contains(t, res.Err.Error(), "reference solver")
}

func TestFakeClock(t *testing.T) {
	dir := writeCases(t, map[string]string{"test_01.inp": decryptCases["test_01.inp"]})
	r := newRunner(t, "correct", solver.Decrypt)
	r.Clock = clockwork.NewFakeClock()

	rep, err := r.Run(context.Background(), solver.Decrypt, dir)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Passed)
	require.Equal(t, time.Duration(0), rep.Cases[0].Elapsed)
	require.Equal(t, time.Duration(0), rep.Elapsed)
}

func TestEmptyDir(t *testing.T) {
	r := &Runner{Executable: os.Args[0]}
	_, err := r.Run(context.Background(), solver.Decrypt, t.TempDir())
	require.Error(t, err)
}

func TestCanceled(t *testing.T) {
	dir := writeCases(t, decryptCases)
	r := newRunner(t, "correct", solver.Decrypt)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := r.Run(ctx, solver.Decrypt, dir)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, rep.Cases)
}

func TestCases(t *testing.T) {
	dir := writeCases(t, map[string]string{
		"test_10.inp": "",
		"test_02.inp": "",
		"test_01.inp": "",
		"test_01.out": "",
		"notes.inp":   "",
	})
	files, err := Cases(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "test_01.inp"),
		filepath.Join(dir, "test_02.inp"),
		filepath.Join(dir, "test_10.inp"),
	}, files)
}
