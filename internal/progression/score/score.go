// Package score computes the composite progress figure shown to users.
package score

import (
	"math"

	"ascent/internal/progression/models"
	"ascent/internal/registry"
	"ascent/pkg/domain"
)

// Catalog lists the registered domains.
type Catalog interface {
	Domains() []*registry.Domain
}

// Composite is the mean of level/max over every registered domain, scaled to
// 0..100 and rounded half away from zero. Domains without a state count as
// level 0; states for unregistered domains are ignored.
func Composite(catalog Catalog, states []*models.DomainState) int {
	domains := catalog.Domains()
	if len(domains) == 0 {
		return 0
	}

	levels := make(map[domain.DomainID]int, len(states))
	for _, st := range states {
		if st != nil {
			levels[st.Domain] = st.CurrentLevel
		}
	}

	var sum float64
	for _, d := range domains {
		top := d.MaxLevel()
		if top <= 0 {
			continue
		}
		lvl := min(max(0, levels[d.ID]), top)
		sum += float64(lvl) / float64(top)
	}
	return int(math.Round(sum / float64(len(domains)) * 100))
}
