package main

import (
	"math"

	"github.com/pthm-cable/yee/config"
)

// ParamSpec defines a single tunable PML parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard parameter set. sigma_scale multiplies
// the per-axis optimal sigma_max for the configured grading order.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "sigma_scale", Path: "pml.sigma_scale", Min: 0.2, Max: 3.0, Default: 1.0},
			{Name: "order", Path: "pml.m", Min: 2.0, Max: 5.0, Default: 3.0},
			{Name: "kappa_max", Path: "pml.kappa_max", Min: 1.0, Max: 15.0, Default: 2.5},
			{Name: "alpha_max", Path: "pml.alpha_max", Min: 0.0, Max: 0.3, Default: 0.05},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into cfg.PML and recomputes derived
// values. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	c := pv.Clamp(values)
	cfg.PML.Order = c[1]
	cfg.PML.KappaMax = c[2]
	cfg.PML.AlphaMax = c[3]
	cfg.PML.SigmaMax = 0
	cfg.PML.SigmaScale = c[0]
	return cfg.Recompute()
}

// ExtractFromConfig reads current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	scale := cfg.PML.SigmaScale
	if scale == 0 {
		scale = 1
	}
	if cfg.PML.SigmaMax != 0 && cfg.Derived.OptimalSigma[0] != 0 {
		scale = cfg.PML.SigmaMax / cfg.Derived.OptimalSigma[0]
	}
	return []float64{scale, cfg.PML.Order, cfg.PML.KappaMax, cfg.PML.AlphaMax}
}
