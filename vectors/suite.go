package vectors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"elgamal_vectors/rng"
	"elgamal_vectors/solver"

	"golang.org/x/sync/errgroup"
)

// Bucket asks for Count cases over primes of Bits bits.
type Bucket struct {
	Bits  int
	Count int
}

// DefaultSchedule is the size ladder of a full suite.
var DefaultSchedule = []Bucket{
	{Bits: 8, Count: 3},
	{Bits: 16, Count: 3},
	{Bits: 32, Count: 3},
	{Bits: 64, Count: 3},
	{Bits: 128, Count: 3},
	{Bits: 256, Count: 2},
	{Bits: 512, Count: 3},
}

// Suite writes numbered test cases into a directory.
type Suite struct {
	Generator Generator
	// Seed makes the suite reproducible: case i draws from its own stream
	// derived from Seed, the kind and i. Without a seed, Generator.Rand is
	// used and cases are built one at a time.
	Seed []byte
}

// CaseName returns the file stem of the i-th case, counting from 1.
func CaseName(i int) string {
	return fmt.Sprintf("test_%02d", i)
}

// Write builds every case of the schedule and writes test_NN.inp and
// test_NN.out files into dir. It returns the number of cases written.
func (s *Suite) Write(ctx context.Context, dir string, kind solver.Kind, schedule []Bucket) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	type job struct {
		index, bits int
	}
	var jobs []job
	for _, b := range schedule {
		for c := 0; c < b.Count; c++ {
			jobs = append(jobs, job{index: len(jobs) + 1, bits: b.Bits})
		}
	}

	logger := s.Generator.logger().Named("vectors").With("kind", kind.String())
	logger.Infow("writing suite", "dir", dir, "cases", len(jobs), "seeded", s.Seed != nil)

	build := func(ctx context.Context, j job) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		gen := s.Generator
		if s.Seed != nil {
			stream, err := rng.NewStream(s.streamKey(kind), uint64(j.index))
			if err != nil {
				return err
			}
			gen.Rand = stream
		}
		v, err := gen.Vector(kind, j.bits, j.index)
		if err != nil {
			return fmt.Errorf("case %d (%d bits): %w", j.index, j.bits, err)
		}
		stem := filepath.Join(dir, CaseName(j.index))
		if err := writeFile(stem+".inp", v.WriteInput); err != nil {
			return err
		}
		if err := writeFile(stem+".out", v.WriteOutput); err != nil {
			return err
		}
		logger.Debugw("case written", "case", CaseName(j.index), "bits", j.bits)
		return nil
	}

	if s.Seed == nil {
		for _, j := range jobs {
			if err := build(ctx, j); err != nil {
				return 0, err
			}
		}
		return len(jobs), nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		eg.Go(func() error { return build(ectx, j) })
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

func (s *Suite) streamKey(kind solver.Kind) []byte {
	return append([]byte(kind.String()+"/"), s.Seed...)
}

// WriteSuite writes a suite with an unseeded generator.
func WriteSuite(dir string, kind solver.Kind, schedule []Bucket) (int, error) {
	s := &Suite{}
	return s.Write(context.Background(), dir, kind, schedule)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
