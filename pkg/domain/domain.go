// Package domain provides the integer domains that back every decision
// variable, the store that owns them, and the results propagation reports.
//
// A Domain is an immutable set of integers. The common case is a single closed
// interval [min,max]; excluding an interior value turns it into a sorted union
// of disjoint, non-adjacent intervals. Every operation that narrows a domain
// returns a new value and coalesces the parts, so a contiguous domain always
// has exactly one representation.
package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// span is one closed sub-interval of a compound domain.
type span struct {
	lo, hi int
}

// Domain is an immutable, non-empty set of integers.
//
// The zero value is the constant domain {0}.
type Domain struct {
	min, max int
	// parts is nil for a contiguous domain. Otherwise it holds at least two
	// sorted, disjoint, non-adjacent spans whose bounds are min and max.
	parts []span
}

// New returns the contiguous domain [min,max]. It panics if min > max.
func New(min, max int) Domain {
	if min > max {
		panic(fmt.Sprintf("domain: empty interval [%d,%d]", min, max))
	}
	return Domain{min: min, max: max}
}

// Binary returns [0,1].
func Binary() Domain { return Domain{min: 0, max: 1} }

// Constant returns {v}.
func Constant(v int) Domain { return Domain{min: v, max: v} }

// FromValues returns the smallest domain containing exactly the given values.
// It panics when no value is given.
func FromValues(values ...int) Domain {
	if len(values) == 0 {
		panic("domain: FromValues needs at least one value")
	}
	spans := make([]span, len(values))
	for i, v := range values {
		spans[i] = span{v, v}
	}
	d, _ := build(spans)
	return d
}

// build sorts and coalesces spans into a Domain. ok is false when spans is empty.
func build(spans []span) (d Domain, ok bool) {
	if len(spans) == 0 {
		return Domain{}, false
	}
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.lo, b.lo) })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.lo <= last.hi+1 {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			continue
		}
		merged = append(merged, s)
	}
	d = Domain{min: merged[0].lo, max: merged[len(merged)-1].hi}
	if len(merged) > 1 {
		d.parts = append([]span(nil), merged...)
	}
	return d, true
}

func (d Domain) spans() []span {
	if d.parts == nil {
		return []span{{d.min, d.max}}
	}
	return d.parts
}

// Min returns the smallest value.
func (d Domain) Min() int { return d.min }

// Max returns the largest value.
func (d Domain) Max() int { return d.max }

// IsConstant reports whether the domain holds a single value.
func (d Domain) IsConstant() bool { return d.min == d.max }

// Size returns Max()-Min(). Holes do not reduce the size.
func (d Domain) Size() int { return d.max - d.min }

// IsContiguous reports whether the domain has no holes.
func (d Domain) IsContiguous() bool { return d.parts == nil }

// Count returns the number of values in the domain.
func (d Domain) Count() int {
	if d.parts == nil {
		return d.max - d.min + 1
	}
	n := 0
	for _, s := range d.parts {
		n += s.hi - s.lo + 1
	}
	return n
}

// IsBinary reports whether the domain is exactly [0,1].
func (d Domain) IsBinary() bool { return d.min == 0 && d.max == 1 }

// Contains reports whether v is in the domain.
func (d Domain) Contains(v int) bool {
	if v < d.min || v > d.max {
		return false
	}
	if d.parts == nil {
		return true
	}
	for _, s := range d.parts {
		if v < s.lo {
			return false
		}
		if v <= s.hi {
			return true
		}
	}
	return false
}

// WithMin removes every value below v. ok is false if nothing remains.
// When v falls in a hole the new minimum is the next value present.
func (d Domain) WithMin(v int) (Domain, bool) {
	if v <= d.min {
		return d, true
	}
	if v > d.max {
		return d, false
	}
	if d.parts == nil {
		return Domain{min: v, max: d.max}, true
	}
	kept := make([]span, 0, len(d.parts))
	for _, s := range d.parts {
		if s.hi < v {
			continue
		}
		if s.lo < v {
			s.lo = v
		}
		kept = append(kept, s)
	}
	return build(kept)
}

// WithMax removes every value above v. ok is false if nothing remains.
func (d Domain) WithMax(v int) (Domain, bool) {
	if v >= d.max {
		return d, true
	}
	if v < d.min {
		return d, false
	}
	if d.parts == nil {
		return Domain{min: d.min, max: v}, true
	}
	kept := make([]span, 0, len(d.parts))
	for _, s := range d.parts {
		if s.lo > v {
			break
		}
		if s.hi > v {
			s.hi = v
		}
		kept = append(kept, s)
	}
	return build(kept)
}

// Without removes v. Removing an interior value splits the interval.
// ok is false if v was the only value.
func (d Domain) Without(v int) (Domain, bool) {
	if !d.Contains(v) {
		return d, true
	}
	if d.IsConstant() {
		return d, false
	}
	switch v {
	case d.min:
		return d.WithMin(v + 1)
	case d.max:
		return d.WithMax(v - 1)
	}
	src := d.spans()
	kept := make([]span, 0, len(src)+1)
	for _, s := range src {
		if v < s.lo || v > s.hi {
			kept = append(kept, s)
			continue
		}
		if s.lo <= v-1 {
			kept = append(kept, span{s.lo, v - 1})
		}
		if v+1 <= s.hi {
			kept = append(kept, span{v + 1, s.hi})
		}
	}
	return build(kept)
}

// Intersect returns the values present in both domains.
func (d Domain) Intersect(o Domain) (Domain, bool) {
	a, b := d.spans(), o.spans()
	var out []span
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max(a[i].lo, b[j].lo)
		hi := min(a[i].hi, b[j].hi)
		if lo <= hi {
			out = append(out, span{lo, hi})
		}
		if a[i].hi < b[j].hi {
			i++
		} else {
			j++
		}
	}
	return build(out)
}

// Scale returns the bounds of s·x for x in d: [s·min, s·max] when s > 0 and
// [s·max, s·min] when s < 0. Holes are not carried over.
func (d Domain) Scale(s int) Domain {
	switch {
	case s > 0:
		return Domain{min: s * d.min, max: s * d.max}
	case s < 0:
		return Domain{min: s * d.max, max: s * d.min}
	default:
		return Domain{}
	}
}

// Next returns the smallest value greater than v.
func (d Domain) Next(v int) (int, bool) {
	if v >= d.max {
		return 0, false
	}
	if v < d.min {
		return d.min, true
	}
	for _, s := range d.spans() {
		if v+1 <= s.hi {
			return max(v+1, s.lo), true
		}
	}
	return 0, false
}

// Prev returns the largest value smaller than v.
func (d Domain) Prev(v int) (int, bool) {
	if v <= d.min {
		return 0, false
	}
	if v > d.max {
		return d.max, true
	}
	src := d.spans()
	for i := len(src) - 1; i >= 0; i-- {
		if v-1 >= src[i].lo {
			return min(v-1, src[i].hi), true
		}
	}
	return 0, false
}

// Values lists every value in ascending order. Intended for small domains.
func (d Domain) Values() []int {
	out := make([]int, 0, d.Count())
	for _, s := range d.spans() {
		for v := s.lo; v <= s.hi; v++ {
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether both domains hold the same values.
func (d Domain) Equal(o Domain) bool {
	if d.min != o.min || d.max != o.max || len(d.parts) != len(o.parts) {
		return false
	}
	for i := range d.parts {
		if d.parts[i] != o.parts[i] {
			return false
		}
	}
	return true
}

// String renders {v} for constants, [lo..hi] for intervals and joins the
// parts of a compound domain with ∪.
func (d Domain) String() string {
	if d.IsConstant() {
		return fmt.Sprintf("{%d}", d.min)
	}
	var sb strings.Builder
	for i, s := range d.spans() {
		if i > 0 {
			sb.WriteString("∪")
		}
		if s.lo == s.hi {
			fmt.Fprintf(&sb, "{%d}", s.lo)
			continue
		}
		fmt.Fprintf(&sb, "[%d..%d]", s.lo, s.hi)
	}
	return sb.String()
}
