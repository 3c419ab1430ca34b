package solver

import (
	"slices"
	"time"

	"github.com/gitrdm/intsolve/pkg/domain"
)

// Propagate runs the constraints to a common fixpoint.
//
// Each round first turns the store's change-log into reconsider counts on
// the constraints mentioning the written variables, then evaluates every
// pending constraint, highest count first (ties by id). A constraint's count
// is reset before it is evaluated. Entailed constraints leave the reverse
// index for good. The loop ends after a round that wrote nothing.
//
// The result is Infeasible when some constraint failed, Change when any round
// wrote, NoChange otherwise. Infeasibility is sticky: once reported, every
// later call returns Infeasible without doing any work.
func (p *Problem) Propagate() domain.Result {
	if p.infeasible {
		return domain.Infeasible
	}
	start := time.Now()
	rounds, evaluated := 0, 0
	defer func() {
		if evaluated > 0 {
			p.cfg.monitor.recordPropagation(rounds, evaluated, time.Since(start))
		}
	}()

	result := domain.NoChange
	for {
		p.collectChanges()
		pending := p.pending()
		if len(pending) == 0 {
			return result
		}
		rounds++
		for _, id := range pending {
			info := &p.infos[id]
			info.reconsider = 0
			evaluated++
			switch info.c.Restrict(p.store) {
			case domain.Infeasible:
				p.infeasible = true
				p.store.ClearChanges()
				return domain.Infeasible
			case domain.Complete:
				p.complete(id)
			}
		}
		if !p.store.HasChanges() {
			return result
		}
		result = domain.Change
	}
}

// collectChanges moves the store's change-log into reconsider counts.
func (p *Problem) collectChanges() {
	for _, v := range p.store.Changes() {
		for _, id := range p.index.of(v) {
			p.infos[id].reconsider++
		}
	}
	p.store.ClearChanges()
}

// pending returns the ids of the live constraints with a positive reconsider
// count, most reconsidered first.
func (p *Problem) pending() []int {
	var ids []int
	for id := range p.infos {
		if !p.infos[id].complete && p.infos[id].reconsider > 0 {
			ids = append(ids, id)
		}
	}
	slices.SortStableFunc(ids, func(a, b int) int {
		return p.infos[b].reconsider - p.infos[a].reconsider
	})
	return ids
}

// complete retires an entailed constraint.
func (p *Problem) complete(id int) {
	info := &p.infos[id]
	info.complete = true
	info.reconsider = 0
	p.index.remove(id, info.c.Vars())
}
