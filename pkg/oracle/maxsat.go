package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/crillab/gophersat/maxsat"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/gitrdm/intsolve/pkg/oracle")

// DefaultPrecision scales objective coefficients to integer clause weights.
const DefaultPrecision = 1000

// MaxSAT solves models with gophersat's weighted partial MaxSAT solver.
//
// Integers are order encoded: x ∈ [l, u] becomes the literals
// [x >= l+1] ... [x >= u], each implying the previous one, and
// x = l + the number of true literals. Rows become hard pseudo-boolean
// constraints: == as two >= constraints and != as a choice between
// expr >= 1 and expr <= -1 selected by an indicator literal. Objective
// coefficients become soft clauses weighted by round(|c|·Precision).
//
// The encoding grows with the width of every domain, so the oracle is meant
// for small models.
type MaxSAT struct {
	// Precision scales objective coefficients. Coefficients whose scaled
	// weight rounds to zero are ignored by the optimization, although the
	// reported objective is always evaluated exactly.
	Precision float64
	Logger    *slog.Logger
}

// NewMaxSAT returns an oracle using DefaultPrecision.
func NewMaxSAT() *MaxSAT {
	return &MaxSAT{Precision: DefaultPrecision}
}

// Solve implements Solver.
func (o *MaxSAT) Solve(ctx context.Context, m Model) (float64, error) {
	res, err := o.Optimize(ctx, m)
	if err != nil {
		return math.Inf(1), err
	}
	return res.Objective, nil
}

// Optimize returns an optimal assignment of m. The gophersat solver cannot
// be interrupted: when ctx ends first Optimize returns ctx.Err() and the
// solve finishes in the background.
func (o *MaxSAT) Optimize(ctx context.Context, m Model) (Result, error) {
	ctx, span := tracer.Start(ctx, "oracle.MaxSAT.Optimize")
	defer span.End()

	if err := m.Validate(); err != nil {
		return Result{}, err
	}
	enc := newEncoding(m, o.precision())
	if enc.trivialUnsat {
		return Result{}, ErrInfeasible
	}
	span.SetAttributes(
		attribute.Int("maxsat.literals", enc.literals),
		attribute.Int("maxsat.constraints", len(enc.constrs)),
	)
	o.logger().Debug("maxsat encoding built", "literals", enc.literals, "constraints", len(enc.constrs))

	type outcome struct {
		model maxsat.Model
		cost  int
	}
	done := make(chan outcome, 1)
	go func() {
		model, cost := enc.solve()
		done <- outcome{model, cost}
	}()

	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, fmt.Errorf("maxsat: %w", ctx.Err())
	case out := <-done:
		if out.model == nil {
			return Result{}, ErrInfeasible
		}
		values := enc.decode(out.model)
		res := Result{Objective: m.Objective.Eval(values), Values: values}
		span.SetAttributes(attribute.Float64("maxsat.objective", res.Objective))
		return res, nil
	}
}

func (o *MaxSAT) precision() float64 {
	if o.Precision <= 0 {
		return DefaultPrecision
	}
	return o.Precision
}

func (o *MaxSAT) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// encoding is the pseudo-boolean translation of a Model.
type encoding struct {
	vars         []Var
	constrs      []maxsat.Constr
	literals     int
	trivialUnsat bool
}

// atLeast returns the literal [x >= l+k] of variable v, 1 <= k <= u-l.
func atLeast(v Var, k int) string {
	return fmt.Sprintf("x%d>=%d", v.Index, v.Min+k)
}

func newEncoding(m Model, precision float64) *encoding {
	enc := &encoding{vars: m.Vars}
	byIndex := make(map[int]Var, len(m.Vars))
	for _, v := range m.Vars {
		byIndex[v.Index] = v
		for k := 1; k <= v.Max-v.Min; k++ {
			enc.literals++
			if k > 1 {
				enc.constrs = append(enc.constrs, maxsat.HardClause(maxsat.Not(atLeast(v, k)), maxsat.Var(atLeast(v, k-1))))
			}
		}
	}

	for i, r := range m.Rows {
		lin := newLinear(r, byIndex)
		switch r.Kind {
		case Equal:
			enc.hard(lin.geq(0))
			enc.hard(lin.leq(0))
		case LessEqual:
			enc.hard(lin.leq(0))
		case NotEqual:
			z := fmt.Sprintf("ne%d", i)
			enc.literals++
			enc.guarded(lin.geq(1), maxsat.Not(z))
			enc.guarded(lin.leq(-1), maxsat.Var(z))
		}
	}

	for _, t := range m.Objective.Terms {
		v := byIndex[t.Index]
		w := int(math.Round(math.Abs(t.Coeff) * precision))
		if w == 0 {
			continue
		}
		for k := 1; k <= v.Max-v.Min; k++ {
			// A positive coefficient pays for every true literal, a negative
			// one for every false literal.
			lit := maxsat.Not(atLeast(v, k))
			if t.Coeff < 0 {
				lit = maxsat.Var(atLeast(v, k))
			}
			enc.constrs = append(enc.constrs, maxsat.WeightedClause([]maxsat.Lit{lit}, w))
		}
	}
	return enc
}

// pb is Σ coeffs·lits >= atLeast with positive coefficients.
type pb struct {
	lits    []maxsat.Lit
	coeffs  []int
	atLeast int
}

// hard adds c. A constraint without literals is checked immediately.
func (e *encoding) hard(c pb) {
	if c.atLeast <= 0 {
		return
	}
	if len(c.lits) == 0 {
		e.trivialUnsat = true
		return
	}
	e.constrs = append(e.constrs, maxsat.HardPBConstr(c.lits, c.coeffs, c.atLeast))
}

// guarded adds c only when the guard literal is false: the guard is added
// with coefficient atLeast, so a true guard satisfies c on its own.
func (e *encoding) guarded(c pb, guard maxsat.Lit) {
	if c.atLeast <= 0 {
		return
	}
	c.lits = append(c.lits, guard)
	c.coeffs = append(c.coeffs, c.atLeast)
	e.constrs = append(e.constrs, maxsat.HardPBConstr(c.lits, c.coeffs, c.atLeast))
}

func (e *encoding) solve() (maxsat.Model, int) {
	if len(e.constrs) == 0 {
		return maxsat.Model{}, 0
	}
	return maxsat.New(e.constrs...).Solve()
}

func (e *encoding) decode(model maxsat.Model) map[int]int {
	values := make(map[int]int, len(e.vars))
	for _, v := range e.vars {
		x := v.Min
		for k := 1; k <= v.Max-v.Min; k++ {
			if model[atLeast(v, k)] {
				x = v.Min + k
			}
		}
		values[v.Index] = x
	}
	return values
}

// linear is a row rewritten over order literals: Σ coeffs·lits + constant.
type linear struct {
	lits     []string
	coeffs   []int
	constant int
}

func newLinear(r Row, vars map[int]Var) linear {
	lin := linear{constant: r.Constant}
	for _, t := range r.Terms {
		v := vars[t.Index]
		lin.constant += t.Coeff * v.Min
		for k := 1; k <= v.Max-v.Min; k++ {
			lin.lits = append(lin.lits, atLeast(v, k))
			lin.coeffs = append(lin.coeffs, t.Coeff)
		}
	}
	return lin
}

// geq returns the constraint lin >= t.
func (l linear) geq(t int) pb {
	return normalize(l.lits, l.coeffs, 1, t-l.constant)
}

// leq returns the constraint lin <= t, that is -lin >= -t.
func (l linear) leq(t int) pb {
	return normalize(l.lits, l.coeffs, -1, l.constant-t)
}

// normalize builds Σ sign·coeffs·lits >= bound with positive coefficients,
// using c·b = c + |c|·¬b for negative c.
func normalize(names []string, coeffs []int, sign, bound int) pb {
	out := pb{atLeast: bound}
	for i, name := range names {
		c := sign * coeffs[i]
		switch {
		case c > 0:
			out.lits = append(out.lits, maxsat.Var(name))
			out.coeffs = append(out.coeffs, c)
		case c < 0:
			out.lits = append(out.lits, maxsat.Not(name))
			out.coeffs = append(out.coeffs, -c)
			out.atLeast -= c
		}
	}
	return out
}
