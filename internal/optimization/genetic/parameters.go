package genetic

import (
	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// Parameters configures the genetic optimizer. Zero values select defaults,
// except MutationRate where zero disables mutation. SelectionRatio and
// ReinsertionRatio are fractions in (0, 1].
type Parameters struct {
	PopulationSize           int     `yaml:"population_size" json:"population_size"`
	GenerationLimit          int     `yaml:"generation_limit" json:"generation_limit"`
	NumIndividualsPerParents int     `yaml:"num_individuals_per_parents" json:"num_individuals_per_parents"`
	SelectionRatio           float64 `yaml:"selection_ratio" json:"selection_ratio"`
	MutationRate             float64 `yaml:"mutation_rate" json:"mutation_rate"`
	ReinsertionRatio         float64 `yaml:"reinsertion_ratio" json:"reinsertion_ratio"`
	TournamentSize           int     `yaml:"tournament_size" json:"tournament_size"`
	// PlateauGenerations stops the run after this many generations without
	// an all-time improvement. Zero disables the check.
	PlateauGenerations int   `yaml:"plateau_generations" json:"plateau_generations"`
	Seed               int64 `yaml:"seed" json:"seed"`
}

// DefaultParameters returns the default genetic parameters.
func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:           50,
		GenerationLimit:          500,
		NumIndividualsPerParents: 2,
		SelectionRatio:           0.7,
		MutationRate:             0.05,
		ReinsertionRatio:         0.7,
		TournamentSize:           3,
	}
}

// ParseParameters reads parameters from YAML and validates them. Omitted
// fields keep their defaults.
func ParseParameters(data []byte) (Parameters, error) {
	p := DefaultParameters()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Parameters{}, optimization.WrapError(optimization.ErrConfig, err, "could not read optimization params")
	}
	return p.Validate()
}

// Validate fills defaults for zero fields and rejects invalid values.
func (p Parameters) Validate() (Parameters, error) {
	d := DefaultParameters()
	if p.PopulationSize == 0 {
		p.PopulationSize = d.PopulationSize
	}
	if p.GenerationLimit == 0 {
		p.GenerationLimit = d.GenerationLimit
	}
	if p.NumIndividualsPerParents == 0 {
		p.NumIndividualsPerParents = d.NumIndividualsPerParents
	}
	if p.SelectionRatio == 0 {
		p.SelectionRatio = d.SelectionRatio
	}
	if p.ReinsertionRatio == 0 {
		p.ReinsertionRatio = d.ReinsertionRatio
	}
	if p.TournamentSize == 0 {
		p.TournamentSize = d.TournamentSize
	}

	invalid := func(format string, args ...interface{}) (Parameters, error) {
		return Parameters{}, optimization.NewErrorf(optimization.ErrConfig, format, args...).WithComponent("genetic")
	}
	switch {
	case p.PopulationSize < 2:
		return invalid("population_size must be at least 2, got %d", p.PopulationSize)
	case p.GenerationLimit < 1:
		return invalid("generation_limit must be positive, got %d", p.GenerationLimit)
	case p.NumIndividualsPerParents < 2:
		return invalid("num_individuals_per_parents must be at least 2, got %d", p.NumIndividualsPerParents)
	case p.SelectionRatio <= 0 || p.SelectionRatio > 1:
		return invalid("selection_ratio must be in (0, 1], got %v", p.SelectionRatio)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return invalid("mutation_rate must be in [0, 1], got %v", p.MutationRate)
	case p.ReinsertionRatio <= 0 || p.ReinsertionRatio > 1:
		return invalid("reinsertion_ratio must be in (0, 1], got %v", p.ReinsertionRatio)
	case p.TournamentSize < 1:
		return invalid("tournament_size must be positive, got %d", p.TournamentSize)
	case p.PlateauGenerations < 0:
		return invalid("plateau_generations must not be negative, got %d", p.PlateauGenerations)
	}
	return p, nil
}
