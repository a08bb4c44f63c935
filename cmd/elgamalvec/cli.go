package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v2"

	"elgamal_vectors/commitment"
	"elgamal_vectors/config"
	"elgamal_vectors/elgamal"
	"elgamal_vectors/harness"
	"elgamal_vectors/hashfunctions"
	"elgamal_vectors/log"
	"elgamal_vectors/revhex"
	"elgamal_vectors/rng"
	"elgamal_vectors/solver"
	"elgamal_vectors/vectors"
)

// Automatically set through -ldflags
// Example: go install -ldflags "-X main.version=`git describe --tags`
//   -X main.buildDate=`date -u +%d/%m/%Y@%H:%M:%S` -X main.gitCommit=`git rev-parse HEAD`"
var (
	version   = "master"
	gitCommit = "none"
	buildDate = "unknown"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file; defaults are used when unset",
	}
	dirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "Directory holding the test_NN.inp/.out files",
		Value: "test",
	}
	kindFlag = &cli.StringFlag{
		Name:  "kind",
		Usage: "Test-case family: decrypt, verify, dh, primroot, or all (one subdirectory per kind)",
		Value: solver.Decrypt.String(),
	}
	seedFlag = &cli.StringFlag{
		Name:  "seed",
		Usage: "Seed for a reproducible suite; overrides the configuration",
	}
	execFlag = &cli.StringFlag{
		Name:  "exec",
		Usage: "Program to test, called with the input and output paths; overrides the configuration",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Per-case time limit; overrides the configuration",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
		Value: "info",
	}
	jsonLogsFlag = &cli.BoolFlag{
		Name:  "json-logs",
		Usage: "Log in JSON instead of console lines",
	}
	hashFlag = &cli.StringFlag{
		Name:  "hash",
		Usage: "Message hash: blake2b or mimc",
		Value: hashfunctions.Blake2b.String(),
	}
)

// CLI returns the elgamalvec application.
func CLI() *cli.App {
	app := &cli.App{
		Name:    "elgamalvec",
		Version: version,
		Usage:   "ElGamal test-vector generator, reference solver and comparison harness",
		Flags:   []cli.Flag{logLevelFlag, jsonLogsFlag},
		Commands: []*cli.Command{
			generateCmd, compareCmd, solveCmd, signCmd, proveCmd, encodeCmd, decodeCmd, configCmd,
		},
	}
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "elgamalvec %v (date %v, commit %v)\n", version, buildDate, gitCommit)
	}
	return app
}

func logger(cctx *cli.Context) (log.Logger, error) {
	level, err := log.ParseLevel(cctx.String(logLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	return log.New(nil, level, cctx.Bool(jsonLogsFlag.Name)), nil
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	c := config.Default()
	if path := cctx.String(configFlag.Name); path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if cctx.IsSet(seedFlag.Name) {
		c.Seed = cctx.String(seedFlag.Name)
	}
	if cctx.IsSet(execFlag.Name) {
		c.Executable = cctx.String(execFlag.Name)
	}
	if cctx.IsSet(timeoutFlag.Name) {
		c.Timeout = cctx.Duration(timeoutFlag.Name)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// kinds resolves the kind flag. With "all", every kind gets its own
// subdirectory of dir.
func kinds(cctx *cli.Context) (map[solver.Kind]string, error) {
	dir := cctx.String(dirFlag.Name)
	name := cctx.String(kindFlag.Name)
	if name == "all" {
		out := make(map[solver.Kind]string)
		for _, k := range solver.Kinds() {
			out[k] = filepath.Join(dir, k.String())
		}
		return out, nil
	}
	k, err := solver.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return map[solver.Kind]string{k: dir}, nil
}

var generateCmd = &cli.Command{
	Name:  "generate",
	Usage: "write a suite of test cases and their expected outputs",
	Flags: []cli.Flag{configFlag, dirFlag, kindFlag, seedFlag},

	Action: func(cctx *cli.Context) error {
		l, err := logger(cctx)
		if err != nil {
			return err
		}
		c, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		targets, err := kinds(cctx)
		if err != nil {
			return err
		}
		suite := &vectors.Suite{
			Generator: vectors.Generator{Rounds: c.Rounds, MaxAttempts: c.MaxAttempts, Logger: l},
		}
		if c.Seed != "" {
			suite.Seed = []byte(c.Seed)
		}
		for _, k := range solver.Kinds() {
			dir, ok := targets[k]
			if !ok {
				continue
			}
			n, err := suite.Write(cctx.Context, dir, k, c.Schedule)
			if err != nil {
				return fmt.Errorf("generating %v suite: %w", k, err)
			}
			fmt.Fprintf(cctx.App.Writer, "%s: wrote %d cases to %s\n", k, n, dir)
		}
		return nil
	},
}

var compareCmd = &cli.Command{
	Name:  "compare",
	Usage: "run a program over a suite and compare its answers",
	Flags: []cli.Flag{configFlag, dirFlag, kindFlag, execFlag, timeoutFlag},

	Action: func(cctx *cli.Context) error {
		l, err := logger(cctx)
		if err != nil {
			return err
		}
		c, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		if c.Executable == "" {
			return errors.New("no program to test: set --exec or harness.executable")
		}
		targets, err := kinds(cctx)
		if err != nil {
			return err
		}
		runner := &harness.Runner{Executable: c.Executable, Timeout: c.Timeout, Logger: l}

		failed := 0
		for _, k := range solver.Kinds() {
			dir, ok := targets[k]
			if !ok {
				continue
			}
			rep, err := runner.Run(cctx.Context, k, dir)
			if err != nil {
				return err
			}
			printReport(cctx, rep)
			failed += rep.Failed
		}
		if failed > 0 {
			return fmt.Errorf("%d case(s) failed", failed)
		}
		return nil
	},
}

func printReport(cctx *cli.Context, rep *harness.Report) {
	w := cctx.App.Writer
	for _, c := range rep.Cases {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s %s (%s)\n", status, rep.Kind, c.Name, c.Elapsed.Round(time.Millisecond))
		if !c.Passed {
			if len(c.Mismatches) == 0 {
				fmt.Fprintf(w, "    %v\n", c.Err)
			}
			for _, m := range c.Mismatches {
				fmt.Fprintf(w, "    %s\n", m)
			}
		}
	}
	fmt.Fprintf(w, "%s: %d/%d passed (%.1f%%)\n", rep.Kind, rep.Passed, len(rep.Cases), 100*rep.SuccessRate())
}

var solveCmd = &cli.Command{
	Name:      "solve",
	Usage:     "solve one input file with the reference implementation",
	ArgsUsage: "<kind> <input> <output>",

	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 3 {
			return fmt.Errorf("solve expects 3 arguments, got %d", cctx.NArg())
		}
		k, err := solver.ParseKind(cctx.Args().Get(0))
		if err != nil {
			return err
		}
		return solver.SolveFile(k, cctx.Args().Get(1), cctx.Args().Get(2))
	},
}

var signCmd = &cli.Command{
	Name:      "sign",
	Usage:     "sign a message and print a verify-kind input file",
	ArgsUsage: "<key> <message>",
	Description: "The key file holds p, g and x in reversed hex, one per line. The\n" +
		"output is p, g, y, m, r, s where m is the message hash reduced mod p-1.",
	Flags: []cli.Flag{hashFlag},

	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return fmt.Errorf("sign expects 2 arguments, got %d", cctx.NArg())
		}
		kind, err := hashfunctions.ParseKind(cctx.String(hashFlag.Name))
		if err != nil {
			return err
		}
		kf, err := os.Open(cctx.Args().Get(0))
		if err != nil {
			return err
		}
		fields, err := revhex.ReadFields(kf, 3)
		kf.Close()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		msg, err := os.ReadFile(cctx.Args().Get(1))
		if err != nil {
			return err
		}

		priv, err := elgamal.NewPrivateKey(elgamal.Params{P: fields[0], G: fields[1]}, fields[2])
		if err != nil {
			return err
		}
		pub := &priv.PublicKey
		sig, err := priv.SignMessage(rng.Default(), kind, msg)
		if err != nil {
			return err
		}
		if !pub.VerifyMessage(kind, msg, sig) {
			return errors.New("signature does not verify; is g a generator mod p?")
		}
		m, err := hashfunctions.ToInt(kind, msg, new(big.Int).Sub(pub.P, big.NewInt(1)))
		if err != nil {
			return err
		}
		return revhex.WriteFields(cctx.App.Writer, pub.P, pub.G, pub.Y, m, sig.R, sig.S)
	},
}

var proveCmd = &cli.Command{
	Name:      "prove",
	Usage:     "prove knowledge of a message behind its MiMC digest",
	ArgsUsage: "<message>",

	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("prove expects 1 argument, got %d", cctx.NArg())
		}
		l, err := logger(cctx)
		if err != nil {
			return err
		}
		msg, err := os.ReadFile(cctx.Args().Get(0))
		if err != nil {
			return err
		}
		keys, err := commitment.Setup(len(msg))
		if err != nil {
			return err
		}
		l.Debugw("circuit compiled", "constraints", keys.Constraints())
		proof, digest, err := keys.Prove(msg)
		if err != nil {
			return err
		}
		if err := keys.Verify(proof, digest); err != nil {
			return fmt.Errorf("proof rejected: %w", err)
		}
		fmt.Fprintln(cctx.App.Writer, revhex.Encode(new(big.Int).SetBytes(digest)))
		fmt.Fprintf(cctx.App.Writer, "proof verified (%d constraints)\n", keys.Constraints())
		return nil
	},
}

var encodeCmd = &cli.Command{
	Name:      "encode",
	Usage:     "print decimal integers in reversed hex",
	ArgsUsage: "<decimal>...",

	Action: func(cctx *cli.Context) error {
		for _, arg := range cctx.Args().Slice() {
			v, ok := new(big.Int).SetString(arg, 10)
			if !ok || v.Sign() < 0 {
				return fmt.Errorf("not a non-negative decimal integer: %q", arg)
			}
			fmt.Fprintln(cctx.App.Writer, revhex.Encode(v))
		}
		return nil
	},
}

var decodeCmd = &cli.Command{
	Name:      "decode",
	Usage:     "print reversed-hex values in decimal",
	ArgsUsage: "<reversed-hex>...",

	Action: func(cctx *cli.Context) error {
		for _, arg := range cctx.Args().Slice() {
			v, err := revhex.Decode(arg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cctx.App.Writer, v)
		}
		return nil
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Flags: []cli.Flag{configFlag, seedFlag, execFlag, timeoutFlag},

	Action: func(cctx *cli.Context) error {
		c, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		return c.Save(cctx.App.Writer)
	},
}
