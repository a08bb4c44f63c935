// Package config holds the TOML configuration of the vector generator and
// the comparison harness.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"elgamal_vectors/harness"
	"elgamal_vectors/primality"
	"elgamal_vectors/vectors"
)

// Config is the parsed configuration.
type Config struct {
	Rounds      int
	MaxAttempts int
	// Seed makes generated suites reproducible. Empty means crypto/rand.
	Seed     string
	Schedule []vectors.Bucket

	Executable string
	Timeout    time.Duration
}

// ConfigTOML is the on-disk form of Config.
type ConfigTOML struct {
	Generator GeneratorTOML `toml:"generator"`
	Harness   HarnessTOML   `toml:"harness"`
}

// GeneratorTOML is the [generator] table.
type GeneratorTOML struct {
	Rounds      int          `toml:"rounds"`
	MaxAttempts int          `toml:"max_attempts"`
	Seed        string       `toml:"seed"`
	Schedule    []BucketTOML `toml:"schedule"`
}

// BucketTOML is one [[generator.schedule]] entry.
type BucketTOML struct {
	Bits  int `toml:"bits"`
	Count int `toml:"count"`
}

// HarnessTOML is the [harness] table.
type HarnessTOML struct {
	Executable string `toml:"executable"`
	Timeout    string `toml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	schedule := make([]vectors.Bucket, len(vectors.DefaultSchedule))
	copy(schedule, vectors.DefaultSchedule)
	return &Config{
		Rounds:      primality.DefaultRounds,
		MaxAttempts: primality.DefaultMaxAttempts,
		Schedule:    schedule,
		Timeout:     harness.DefaultTimeout,
	}
}

// TOML returns a TOML-encodable version of the configuration.
func (c *Config) TOML() interface{} {
	ct := &ConfigTOML{
		Generator: GeneratorTOML{
			Rounds:      c.Rounds,
			MaxAttempts: c.MaxAttempts,
			Seed:        c.Seed,
		},
		Harness: HarnessTOML{
			Executable: c.Executable,
			Timeout:    c.Timeout.String(),
		},
	}
	ct.Generator.Schedule = make([]BucketTOML, len(c.Schedule))
	for i, b := range c.Schedule {
		ct.Generator.Schedule[i] = BucketTOML(b)
	}
	return ct
}

// TOMLValue returns an empty TOML-compatible value of the configuration.
func (c *Config) TOMLValue() interface{} {
	return &ConfigTOML{}
}

// FromTOML overwrites the fields set in i, a *ConfigTOML, and keeps the
// others.
func (c *Config) FromTOML(i interface{}) error {
	ct, ok := i.(*ConfigTOML)
	if !ok {
		return errors.New("config: FromTOML expects a *ConfigTOML")
	}
	if ct.Generator.Rounds != 0 {
		c.Rounds = ct.Generator.Rounds
	}
	if ct.Generator.MaxAttempts != 0 {
		c.MaxAttempts = ct.Generator.MaxAttempts
	}
	if ct.Generator.Seed != "" {
		c.Seed = ct.Generator.Seed
	}
	if len(ct.Generator.Schedule) > 0 {
		c.Schedule = make([]vectors.Bucket, len(ct.Generator.Schedule))
		for i, b := range ct.Generator.Schedule {
			c.Schedule[i] = vectors.Bucket(b)
		}
	}
	if ct.Harness.Executable != "" {
		c.Executable = ct.Harness.Executable
	}
	if ct.Harness.Timeout != "" {
		d, err := time.ParseDuration(ct.Harness.Timeout)
		if err != nil {
			return fmt.Errorf("config: harness timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("config: rounds must be positive, got %d", c.Rounds)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if len(c.Schedule) == 0 {
		return errors.New("config: empty schedule")
	}
	for i, b := range c.Schedule {
		if b.Bits < vectors.MinBits {
			return fmt.Errorf("config: schedule[%d]: bits must be at least %d, got %d", i, vectors.MinBits, b.Bits)
		}
		if b.Count < 1 {
			return fmt.Errorf("config: schedule[%d]: count must be positive, got %d", i, b.Count)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Load reads the file at path over the defaults and validates the result.
// Unknown keys are an error.
func Load(path string) (*Config, error) {
	c := Default()
	ct := c.TOMLValue()
	md, err := toml.DecodeFile(path, ct)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := c.FromTOML(ct); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.TOML())
}

func (c *Config) String() string {
	var b strings.Builder
	if err := c.Save(&b); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
