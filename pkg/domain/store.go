package domain

import (
	"fmt"
	"slices"
)

// Var is a handle to one variable of a Store. It is a plain positional index
// and only meaningful relative to the store that issued it.
type Var int

// Zero is the constant-zero sentinel every store registers at index 0. It marks
// slots of templated variable arrays that intentionally hold no real variable.
const Zero Var = 0

// Index returns the position of v in its store.
func (v Var) Index() int { return int(v) }

// IsZero reports whether v is the constant-zero sentinel.
func (v Var) IsZero() bool { return v == Zero }

func (v Var) String() string { return fmt.Sprintf("x%d", int(v)) }

// Result is the outcome of narrowing a domain or running a propagator.
type Result int

const (
	// NoChange means nothing was written.
	NoChange Result = iota
	// Change means at least one domain was narrowed.
	Change
	// Complete means the operation can never fire again. For a store write it
	// means the written domain became constant; for a constraint it means the
	// constraint is entailed by the current domains.
	Complete
	// Infeasible means no value is left.
	Infeasible
)

// Changed reports whether a domain write happened.
func (r Result) Changed() bool { return r == Change || r == Complete }

// Merge combines two results of store writes made by the same operation.
// Infeasible dominates; any write makes the combination a Change.
func (r Result) Merge(o Result) Result {
	switch {
	case r == Infeasible || o == Infeasible:
		return Infeasible
	case r.Changed() || o.Changed():
		return Change
	default:
		return NoChange
	}
}

func (r Result) String() string {
	switch r {
	case NoChange:
		return "NoChange"
	case Change:
		return "Change"
	case Complete:
		return "Complete"
	case Infeasible:
		return "Infeasible"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Store is an append-only, indexed collection of domains together with a log
// of the variables written since the log was last cleared. The log drives
// selective re-propagation.
//
// A Store is owned by a single problem and is not safe for concurrent use.
// Search branches work on clones.
type Store struct {
	values  []Domain
	dirty   []bool
	changes []Var
}

// NewStore returns a store holding only the constant-zero sentinel.
func NewStore() *Store {
	s := &Store{}
	s.Add(Constant(0))
	return s
}

// Add registers a new variable with the given initial domain.
func (s *Store) Add(d Domain) Var {
	s.values = append(s.values, d)
	s.dirty = append(s.dirty, false)
	return Var(len(s.values) - 1)
}

// Len returns the number of registered variables, sentinel included.
func (s *Store) Len() int { return len(s.values) }

// Get returns the current domain of v.
func (s *Store) Get(v Var) Domain {
	s.check(v)
	return s.values[v]
}

// Vars returns every registered handle except the sentinel.
func (s *Store) Vars() []Var {
	out := make([]Var, 0, len(s.values)-1)
	for i := 1; i < len(s.values); i++ {
		out = append(out, Var(i))
	}
	return out
}

func (s *Store) check(v Var) {
	if v < 0 || int(v) >= len(s.values) {
		panic(fmt.Sprintf("domain: unknown variable %d (store has %d)", int(v), len(s.values)))
	}
}

func (s *Store) set(v Var, d Domain) Result {
	s.values[v] = d
	if !s.dirty[v] {
		s.dirty[v] = true
		s.changes = append(s.changes, v)
	}
	if d.IsConstant() {
		return Complete
	}
	return Change
}

// RestrictToMin removes every value of v below x.
func (s *Store) RestrictToMin(v Var, x int) Result {
	s.check(v)
	d := s.values[v]
	if x <= d.min {
		return NoChange
	}
	nd, ok := d.WithMin(x)
	if !ok {
		return Infeasible
	}
	return s.set(v, nd)
}

// RestrictToMax removes every value of v above x.
func (s *Store) RestrictToMax(v Var, x int) Result {
	s.check(v)
	d := s.values[v]
	if x >= d.max {
		return NoChange
	}
	nd, ok := d.WithMax(x)
	if !ok {
		return Infeasible
	}
	return s.set(v, nd)
}

// Exclude removes the single value x from v.
func (s *Store) Exclude(v Var, x int) Result {
	s.check(v)
	d := s.values[v]
	if !d.Contains(x) {
		return NoChange
	}
	nd, ok := d.Without(x)
	if !ok {
		return Infeasible
	}
	return s.set(v, nd)
}

// Assign pins v to x.
func (s *Store) Assign(v Var, x int) Result {
	s.check(v)
	d := s.values[v]
	if !d.Contains(x) {
		return Infeasible
	}
	if d.IsConstant() {
		return NoChange
	}
	return s.set(v, Constant(x))
}

// Intersect narrows v to the values it shares with o.
func (s *Store) Intersect(v Var, o Domain) Result {
	s.check(v)
	d := s.values[v]
	nd, ok := d.Intersect(o)
	if !ok {
		return Infeasible
	}
	if nd.Equal(d) {
		return NoChange
	}
	return s.set(v, nd)
}

// Changes returns the variables written since the last ClearChanges, in
// ascending order and without duplicates.
func (s *Store) Changes() []Var {
	out := slices.Clone(s.changes)
	slices.Sort(out)
	return out
}

// HasChanges reports whether anything was written since the last ClearChanges.
func (s *Store) HasChanges() bool { return len(s.changes) > 0 }

// ClearChanges empties the change-log.
func (s *Store) ClearChanges() {
	for _, v := range s.changes {
		s.dirty[v] = false
	}
	s.changes = s.changes[:0]
}

// Clone returns an independent copy. Writes to the clone never reach s.
func (s *Store) Clone() *Store {
	return &Store{
		values:  slices.Clone(s.values),
		dirty:   slices.Clone(s.dirty),
		changes: slices.Clone(s.changes),
	}
}
