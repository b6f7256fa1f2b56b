package annealing

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// DefaultInitTemp replaces an initial temperature of zero.
const DefaultInitTemp = 150.0

// Schedule names accepted in Parameters.Schedule.
const (
	ScheduleExponential = "exponential"
	ScheduleBoltzmann   = "boltzmann"
	ScheduleFast        = "fast"
)

// Parameters configures a simulated annealing run.
type Parameters struct {
	InitTemp    float64 `yaml:"init_temp" json:"init_temp"`
	CoolingRate float64 `yaml:"cooling_rate" json:"cooling_rate"`
	Schedule    string  `yaml:"schedule" json:"schedule"`
	MaxIters    int     `yaml:"max_iters" json:"max_iters"`
	// KeySwitches is the number of slot swaps that make up one neighbor.
	KeySwitches int `yaml:"key_switches" json:"key_switches"`
	// ProgressInterval is the observer progress cadence in iterations.
	ProgressInterval int   `yaml:"progress_interval" json:"progress_interval"`
	Seed             int64 `yaml:"seed" json:"seed"`
}

// DefaultParameters returns the default annealing parameters.
func DefaultParameters() Parameters {
	return Parameters{
		InitTemp:         DefaultInitTemp,
		CoolingRate:      0.999,
		Schedule:         ScheduleExponential,
		MaxIters:         10000,
		KeySwitches:      1,
		ProgressInterval: 10,
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

// CorrectInitTemp makes the initial temperature usable. Zero becomes
// DefaultInitTemp and a negative temperature becomes its absolute value.
// NaN and infinite temperatures cannot be corrected.
func (p *Parameters) CorrectInitTemp() error {
	switch {
	case math.IsNaN(p.InitTemp) || math.IsInf(p.InitTemp, 0):
		return optimization.NewErrorf(optimization.ErrInvalidParameter, "init_temp %v cannot be corrected", p.InitTemp).WithComponent("annealing")
	case p.InitTemp == 0:
		p.InitTemp = DefaultInitTemp
	case p.InitTemp < 0:
		p.InitTemp = -p.InitTemp
	}
	return nil
}

// Validate corrects the initial temperature, fills defaults for zero fields
// and rejects invalid values.
func (p Parameters) Validate() (Parameters, error) {
	if err := p.CorrectInitTemp(); err != nil {
		return Parameters{}, err
	}
	d := DefaultParameters()
	if p.Schedule == "" {
		p.Schedule = d.Schedule
	}
	if p.CoolingRate == 0 {
		p.CoolingRate = d.CoolingRate
	}
	if p.KeySwitches == 0 {
		p.KeySwitches = d.KeySwitches
	}
	if p.ProgressInterval == 0 {
		p.ProgressInterval = d.ProgressInterval
	}

	invalid := func(format string, args ...interface{}) (Parameters, error) {
		return Parameters{}, optimization.NewErrorf(optimization.ErrInvalidParameter, format, args...).WithComponent("annealing")
	}
	switch {
	case p.MaxIters < 1:
		return invalid("max_iters must be positive, got %d", p.MaxIters)
	case p.KeySwitches < 1:
		return invalid("key_switches must be positive, got %d", p.KeySwitches)
	case p.ProgressInterval < 1:
		return invalid("progress_interval must be positive, got %d", p.ProgressInterval)
	}
	switch p.Schedule {
	case ScheduleExponential:
		if !(p.CoolingRate > 0 && p.CoolingRate < 1) {
			return invalid("cooling_rate must be in (0, 1), got %v", p.CoolingRate)
		}
	case ScheduleBoltzmann, ScheduleFast:
	default:
		return invalid("unknown schedule %q", p.Schedule)
	}
	return p, nil
}
