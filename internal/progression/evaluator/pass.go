package evaluator

import (
	"time"

	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
)

// DefaultCascadeDepth bounds how many hops a cascade may follow.
const DefaultCascadeDepth = 1

// Catalog is the registry surface a pass needs.
type Catalog interface {
	Domain(id domain.DomainID) (*registry.Domain, error)
}

// Pass evaluates and promotes one user's domains in memory. It mutates the
// states it was given and records every decision and promotion; committing
// the result is the caller's job.
type Pass struct {
	catalog   Catalog
	userID    domain.UserID
	states    map[domain.DomainID]*models.DomainState
	snapshots registry.SnapshotSet
	now       time.Time
	maxDepth  int

	visited    map[domain.DomainID]bool
	decisions  map[domain.DomainID]models.Decision
	promotions []models.Promotion
}

// NewPass prepares a pass over states. Missing states are created at level 0
// when a domain is first visited.
func NewPass(catalog Catalog, userID domain.UserID, states map[domain.DomainID]*models.DomainState, snapshots registry.SnapshotSet, now time.Time, maxDepth int) *Pass {
	if states == nil {
		states = make(map[domain.DomainID]*models.DomainState)
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Pass{
		catalog:   catalog,
		userID:    userID,
		states:    states,
		snapshots: snapshots,
		now:       now,
		maxDepth:  maxDepth,
		visited:   make(map[domain.DomainID]bool),
		decisions: make(map[domain.DomainID]models.Decision),
	}
}

// Advance evaluates id and follows cascades from any promotion. A domain is
// visited at most once per pass, which also breaks cascade cycles.
func (p *Pass) Advance(id domain.DomainID) error {
	return p.advance(id, 0, false)
}

func (p *Pass) advance(id domain.DomainID, depth int, cascade bool) error {
	if p.visited[id] {
		return nil
	}

	d, err := p.catalog.Domain(id)
	if err != nil {
		return err
	}
	snapshot, ok := p.snapshots[id]
	if !ok && cascade {
		// A cascade target is only promoted on evidence supplied for it.
		return nil
	}
	p.visited[id] = true

	state := p.state(id)
	if err := state.Validate(d.MaxLevel()); err != nil {
		return err
	}

	dec := Evaluate(d, state, snapshot, p.now)
	p.decisions[id] = dec
	if !dec.Eligible() {
		return nil
	}

	from := state.CurrentLevel
	state.Promote(p.now)
	p.promotions = append(p.promotions, models.Promotion{
		Domain:    id,
		FromLevel: from,
		ToLevel:   state.CurrentLevel,
		Cascade:   cascade,
		At:        p.now,
	})

	if !d.CascadeEligible || depth >= p.maxDepth {
		return nil
	}
	for _, target := range d.CascadesTo {
		if err := p.advance(target, depth+1, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pass) state(id domain.DomainID) *models.DomainState {
	st, ok := p.states[id]
	if !ok {
		st = models.NewDomainState(p.userID, id, p.now)
		p.states[id] = st
	}
	return st
}

// Result returns the pass summary.
func (p *Pass) Result() *models.PassResult {
	return &models.PassResult{
		UserID:     p.userID,
		Decisions:  p.decisions,
		Promotions: p.promotions,
		States:     p.states,
	}
}

// Touched lists the domains whose state changed, in promotion order.
func (p *Pass) Touched() []domain.DomainID {
	out := make([]domain.DomainID, 0, len(p.promotions))
	for _, pr := range p.promotions {
		out = append(out, pr.Domain)
	}
	return out
}
