package config_test

import (
	"strings"
	"testing"

	"github.com/redbug312/adams-leaf/config"
)

func TestLoad_OverridesOnlyGivenFields(t *testing.T) {
	doc := strings.NewReader("algorithm: ro\nseed: 7\n")
	cfg, err := config.Load(doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Algorithm != config.RO {
		t.Fatalf("expected algorithm ro, got %v", cfg.Algorithm)
	}
	if cfg.Seed != 7 {
		t.Fatalf("expected seed 7, got %d", cfg.Seed)
	}
	if cfg.Weights != [4]float64{1, 1, 1, 1} {
		t.Fatalf("expected default weights to survive a partial document, got %v", cfg.Weights)
	}
}

func TestValidate_RejectsUnknownAlgorithm(t *testing.T) {
	cfg := config.Default()
	cfg.Algorithm = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown algorithm")
	}
}

func TestValidate_RejectsZeroSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a zero seed")
	}
}

func TestValidate_RejectsAllZeroWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Weights = [4]float64{0, 0, 0, 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for all-zero weights")
	}
}

func TestValidate_AcceptsDefault(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("expected the default config to validate, got %v", err)
	}
}
