package ode

import (
	"fmt"

	"github.com/njchilds90/odesolve/symbolic"
)

// lowestOrder returns the lowest derivative order present in the residual.
func (p *problem) lowestOrder() int {
	for k := 0; k <= p.order; k++ {
		if symbolic.Contains(p.residual, yk(k)) {
			return k
		}
	}
	return p.order
}

func matchReducible(p *problem) bool {
	return p.order >= 2 && p.lowestOrder() >= 1
}

// solveReducible substitutes w = y^(k) for the lowest order k present,
// solves the reduced equation and integrates w k times.
func solveReducible(p *problem) ([]symbolic.Expr, error) {
	if !matchReducible(p) {
		return nil, ErrNotApplicable
	}
	k := p.lowestOrder()
	var ws []symbolic.Expr
	if k == p.order {
		roots, err := symbolic.SolveFor(p.residual, yk(k))
		if err != nil {
			return nil, err
		}
		if ws, err = explicitOnly(roots); err != nil {
			return nil, err
		}
	} else {
		shift := map[string]string{}
		for j := k; j <= p.order; j++ {
			shift[yk(j)] = yk(j - k)
		}
		reduced := &problem{residual: symbolic.Rename(p.residual, shift), x: p.x, order: p.order - k}
		var err error
		ws, err = reduced.solveAny(map[Hint]bool{NthOrderReducible: true})
		if err != nil {
			return nil, fmt.Errorf("reduced equation of order %d: %w", reduced.order, err)
		}
	}
	out := make([]symbolic.Expr, 0, len(ws))
	for _, w := range ws {
		y, err := integrateTimes(w, p.x, k)
		if err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, nil
}

// integrateTimes integrates w k times, adding a fresh constant each time.
func integrateTimes(w symbolic.Expr, x string, k int) (symbolic.Expr, error) {
	next := highestConstant(w) + 1
	for i := 0; i < k; i++ {
		I, ok := symbolic.Integrate(w, x)
		if !ok {
			return nil, fmt.Errorf("integrate %s d%s: %w", w, x, symbolic.ErrNoIntegral)
		}
		w = symbolic.AddOf(I, constant(next))
		next++
	}
	return w, nil
}
