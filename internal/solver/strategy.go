package solver

import (
	"fmt"
	"strings"

	"github.com/njchilds90/odesolve/ode"
)

// Strategy selects how the Orchestrator approaches an equation.
type Strategy int

const (
	Auto Strategy = iota
	Separable
	Homogeneous
	Exact
	Linear
	Bernoulli
	Reducible
	ConstantCoeff
	Undetermined
	IntegratingFactor
)

type strategyInfo struct {
	name  string
	title string
}

var strategies = map[Strategy]strategyInfo{
	Auto:              {"auto", "Automatic method selection"},
	Separable:         {"separable", "Separable equation"},
	Homogeneous:       {"homogeneous", "Homogeneous equation"},
	Exact:             {"exact", "Exact equation"},
	Linear:            {"linear", "Linear equation"},
	Bernoulli:         {"bernoulli", "Bernoulli equation"},
	Reducible:         {"reducible", "Equation reducible to first order"},
	ConstantCoeff:     {"constant_coeff", "Equation with constant coefficients"},
	Undetermined:      {"undetermined", "Method of undetermined coefficients"},
	IntegratingFactor: {"integrating_factor", "Integrating factor method"},
}

func (s Strategy) String() string {
	if info, ok := strategies[s]; ok {
		return info.name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Title is the heading written to the trace when s is requested by name.
func (s Strategy) Title() string { return strategies[s].title }

// StrategyNames lists the request names in declaration order.
func StrategyNames() []string {
	out := make([]string, 0, len(strategies))
	for s := Auto; s <= IntegratingFactor; s++ {
		out = append(out, s.String())
	}
	return out
}

// ParseStrategy maps a request name to a Strategy. The empty string is
// Auto.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Auto, nil
	}
	for s, info := range strategies {
		if info.name == name {
			return s, nil
		}
	}
	return Auto, fmt.Errorf("unknown method %q (want one of %s)", name, strings.Join(StrategyNames(), ", "))
}

// registry maps each named strategy to the hints tried, in order, before
// the unhinted retry.
var registry = map[Strategy][]ode.Hint{
	Separable:         {ode.Separable},
	Homogeneous:       {ode.HomogeneousBest},
	Exact:             {ode.FirstExact},
	Linear:            {ode.FirstLinear},
	Bernoulli:         {ode.Bernoulli},
	Reducible:         {ode.NthOrderReducible},
	ConstantCoeff:     {ode.ConstCoeffHomogeneous, ode.UndeterminedCoefficients},
	Undetermined:      {ode.UndeterminedCoefficients},
	IntegratingFactor: {ode.FirstLinear},
}

func init() {
	if err := validateRegistry(registry); err != nil {
		panic(err)
	}
}

func validateRegistry(reg map[Strategy][]ode.Hint) error {
	for s := range strategies {
		if s == Auto {
			if _, ok := reg[s]; ok {
				return fmt.Errorf("solver registry: auto must not have a fixed chain")
			}
			continue
		}
		chain, ok := reg[s]
		if !ok || len(chain) == 0 {
			return fmt.Errorf("solver registry: strategy %s has no hints", s)
		}
		for _, h := range chain {
			if !ode.Known(h) {
				return fmt.Errorf("solver registry: strategy %s uses unknown hint %q", s, h)
			}
		}
	}
	for s := range reg {
		if _, ok := strategies[s]; !ok {
			return fmt.Errorf("solver registry: unregistered strategy %d", int(s))
		}
	}
	return nil
}

// Chain returns the hints a named strategy tries first.
func Chain(s Strategy) []ode.Hint {
	return append([]ode.Hint(nil), registry[s]...)
}

var hintNames = map[ode.Hint]string{
	ode.Separable:                "Separable variables",
	ode.FirstExact:               "Exact",
	ode.FirstLinear:              "First-order linear",
	ode.Bernoulli:                "Bernoulli",
	ode.HomogeneousBest:          "Homogeneous (best substitution)",
	ode.ConstCoeffHomogeneous:    "Linear with constant coefficients (homogeneous)",
	ode.UndeterminedCoefficients: "Undetermined coefficients",
	ode.NthOrderReducible:        "Reducible order",
}

// DisplayName returns a readable name for h, or h itself.
func DisplayName(h ode.Hint) string {
	if n, ok := hintNames[h]; ok {
		return n
	}
	return string(h)
}
