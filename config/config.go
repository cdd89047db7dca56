// Package config defines the YAML-shaped configuration spec.md §6 gives
// the CNC: which routing algorithm to run, its PRNG seed, the search time
// budget, the objective-blending weights, the early-stop flag, and a
// free-form per-algorithm parameters table (RO's alpha portion, ACO's ant
// count and evaporation rate).
package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Algorithm names the routing strategy the CNC should run.
type Algorithm string

const (
	SPF Algorithm = "spf"
	RO  Algorithm = "ro"
	ACO Algorithm = "aco"
)

// Sentinel errors Validate returns.
var (
	ErrUnknownAlgorithm = errors.New("config: unknown algorithm")
	ErrBadWeights       = errors.New("config: weights must be non-negative and not all zero")
	ErrBadSeed          = errors.New("config: seed is required")
)

// Parameters holds the algorithm-specific knobs spec.md §6 leaves as a
// free-form table: RO's GRASP restricted-candidate-list fraction and
// ACO's ant count and pheromone evaporation rate.
type Parameters struct {
	AlphaPortion float64 `yaml:"alpha_portion"`
	Ants         int     `yaml:"ants"`
	Rho          float64 `yaml:"rho"`
}

// Config is the YAML document shape spec.md §6 describes.
type Config struct {
	Algorithm     Algorithm  `yaml:"algorithm"`
	Seed          uint64     `yaml:"seed"`
	TimeoutUs     uint64     `yaml:"timeout"`
	Weights       [4]float64 `yaml:"weights"`
	EarlyStop     bool       `yaml:"early_stop"`
	Parameters    Parameters `yaml:"parameters"`
	HyperperiodUs uint32     `yaml:"hyperperiod"`
}

// Default returns a Config with the same baseline values
// algorithm.DefaultConfig uses, so a caller that only overrides a few
// fields from a partial YAML document still gets sane defaults for the
// rest.
func Default() Config {
	return Config{
		Algorithm: SPF,
		Seed:      420,
		TimeoutUs: 1_000_000,
		Weights:   [4]float64{1, 1, 1, 1},
		EarlyStop: true,
		Parameters: Parameters{
			AlphaPortion: 0.5,
			Ants:         20,
			Rho:          0.5,
		},
		HyperperiodUs: 1_000_000,
	}
}

// Load decodes a YAML document from r into a Config seeded with Default,
// so a document need only set the fields it cares to override.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	return cfg, nil
}

// Validate enforces the range invariants spec.md implies: a recognized
// algorithm name, exactly four weights (a [4]float64 already guarantees
// the length; this additionally rejects an all-zero vector, which would
// make every Solution compare equal), and a non-zero seed so runs stay
// reproducible and distinguishable from an unset Config.
func (c Config) Validate() error {
	switch c.Algorithm {
	case SPF, RO, ACO:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.Algorithm)
	}

	var allZero = true
	for _, w := range c.Weights {
		if w != 0 {
			allZero = false
		}
		if w < 0 {
			return fmt.Errorf("%w: negative weight %v", ErrBadWeights, w)
		}
	}
	if allZero {
		return ErrBadWeights
	}

	if c.Seed == 0 {
		return ErrBadSeed
	}

	return nil
}
