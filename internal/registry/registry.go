// Package registry holds the static catalog of progression domains and the
// compliance rule table. The catalog is data: it is loaded once from YAML at
// process start and never mutated afterwards.
package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"ascent/pkg/domain"
	dErrors "ascent/pkg/domain-errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the on-disk shape of the registry.
type Catalog struct {
	Domains             []Domain `yaml:"domains"`
	SignalSchemaVersion int      `yaml:"signal_schema_version"`
	Signals             []string `yaml:"signals"`
	Rules               []Rule   `yaml:"rules"`
}

// Registry answers static lookups about domains, levels, signals and rules.
// It is safe for concurrent use because nothing mutates it after New.
type Registry struct {
	domains       map[domain.DomainID]*Domain
	order         []domain.DomainID
	signalVersion int
	signals       map[string]struct{}
	rules         []Rule
	features      map[domain.Feature]struct{}
}

// Default loads the catalog embedded in the binary.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile loads a catalog from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog and validates it.
func Load(r io.Reader) (*Registry, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(c)
}

// New validates a catalog and builds the lookup indexes.
func New(c Catalog) (*Registry, error) {
	reg := &Registry{
		domains:       make(map[domain.DomainID]*Domain, len(c.Domains)),
		signalVersion: c.SignalSchemaVersion,
		signals:       make(map[string]struct{}, len(c.Signals)),
		features:      make(map[domain.Feature]struct{}),
	}

	for i := range c.Domains {
		d := c.Domains[i]
		if err := validateDomain(&d); err != nil {
			return nil, err
		}
		if _, dup := reg.domains[d.ID]; dup {
			return nil, fmt.Errorf("duplicate domain %q", d.ID)
		}
		for j := range d.Levels {
			d.Levels[j].Index = j
			for _, f := range d.Levels[j].Unlocks {
				reg.features[f] = struct{}{}
			}
		}
		reg.domains[d.ID] = &d
		reg.order = append(reg.order, d.ID)
	}
	if len(reg.order) == 0 {
		return nil, fmt.Errorf("catalog declares no domains")
	}
	for _, id := range reg.order {
		for _, target := range reg.domains[id].CascadesTo {
			if _, ok := reg.domains[target]; !ok {
				return nil, fmt.Errorf("domain %q cascades to unknown domain %q", id, target)
			}
		}
	}

	for _, s := range c.Signals {
		reg.signals[s] = struct{}{}
	}
	seenRules := make(map[string]struct{}, len(c.Rules))
	for _, rule := range c.Rules {
		if err := reg.validateRule(rule); err != nil {
			return nil, err
		}
		if _, dup := seenRules[rule.ID]; dup {
			return nil, fmt.Errorf("duplicate rule %q", rule.ID)
		}
		seenRules[rule.ID] = struct{}{}
		reg.rules = append(reg.rules, rule)
		reg.features[rule.Blocks] = struct{}{}
	}
	return reg, nil
}

func validateDomain(d *Domain) error {
	if id, err := domain.ParseDomainID(string(d.ID)); err != nil || id != d.ID {
		return fmt.Errorf("invalid domain id %q", d.ID)
	}
	if len(d.Levels) < 2 {
		return fmt.Errorf("domain %q needs at least two levels", d.ID)
	}
	for i, lvl := range d.Levels {
		if lvl.MinDwellDays < 0 {
			return fmt.Errorf("domain %q level %d: negative dwell", d.ID, i)
		}
		if lvl.MinScore < 0 {
			return fmt.Errorf("domain %q level %d: negative min score", d.ID, i)
		}
		for _, m := range lvl.RequiredMilestones {
			if !d.Declares(m) {
				return fmt.Errorf("domain %q level %d: undeclared milestone %q", d.ID, i, m)
			}
		}
	}
	if d.CascadeEligible && len(d.CascadesTo) == 0 {
		return fmt.Errorf("domain %q is cascade eligible but names no targets", d.ID)
	}
	if slices.Contains(d.CascadesTo, d.ID) {
		return fmt.Errorf("domain %q cascades to itself", d.ID)
	}
	return nil
}

func (r *Registry) validateRule(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule without id")
	}
	if len(rule.When) == 0 {
		return fmt.Errorf("rule %q has no conditions", rule.ID)
	}
	if _, err := domain.ParseFeature(string(rule.Blocks)); err != nil {
		return fmt.Errorf("rule %q: invalid feature %q", rule.ID, rule.Blocks)
	}
	if _, err := domain.ParseAction(string(rule.FulfillingAction)); err != nil {
		return fmt.Errorf("rule %q: invalid action %q", rule.ID, rule.FulfillingAction)
	}
	for _, c := range rule.When {
		if _, ok := r.signals[c.Signal]; !ok {
			return fmt.Errorf("rule %q: undeclared signal %q", rule.ID, c.Signal)
		}
		if !c.Op.IsValid() {
			return fmt.Errorf("rule %q: unsupported op %q", rule.ID, c.Op)
		}
	}
	return nil
}

// Domain returns the definition for id.
//
// Errors: CodeUnknownDomain when id is not in the catalog.
func (r *Registry) Domain(id domain.DomainID) (*Domain, error) {
	d, ok := r.domains[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownDomain, "unknown domain: "+string(id))
	}
	return d, nil
}

// Domains returns every domain in catalog order.
func (r *Registry) Domains() []*Domain {
	out := make([]*Domain, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.domains[id])
	}
	return out
}

// DomainIDs returns every domain id in catalog order.
func (r *Registry) DomainIDs() []domain.DomainID {
	return slices.Clone(r.order)
}

// LevelsFor returns the ordered level descriptors of a domain.
func (r *Registry) LevelsFor(id domain.DomainID) ([]Level, error) {
	d, err := r.Domain(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.Levels), nil
}

// MaxLevel returns the top level index of a domain.
func (r *Registry) MaxLevel(id domain.DomainID) (int, error) {
	d, err := r.Domain(id)
	if err != nil {
		return 0, err
	}
	return d.MaxLevel(), nil
}

// MinDwell returns the minimum time a user must spend at level before leaving it.
func (r *Registry) MinDwell(id domain.DomainID, level int) (time.Duration, error) {
	lvl, err := r.level(id, level)
	if err != nil {
		return 0, err
	}
	return lvl.MinDwell(), nil
}

// RequiredMilestones returns the milestone names needed to leave level.
func (r *Registry) RequiredMilestones(id domain.DomainID, level int) ([]string, error) {
	lvl, err := r.level(id, level)
	if err != nil {
		return nil, err
	}
	return slices.Clone(lvl.RequiredMilestones), nil
}

func (r *Registry) level(id domain.DomainID, level int) (Level, error) {
	d, err := r.Domain(id)
	if err != nil {
		return Level{}, err
	}
	lvl, ok := d.Level(level)
	if !ok {
		return Level{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("level %d out of range for domain %s", level, id))
	}
	return lvl, nil
}

// ValidateMilestones checks a snapshot against the domain's milestone schema.
// Undeclared names and version mismatches are rejected; declared names that
// are missing are left for the evaluator to report as unmet.
func (r *Registry) ValidateMilestones(id domain.DomainID, s MilestoneSnapshot) error {
	d, err := r.Domain(id)
	if err != nil {
		return err
	}
	if s.SchemaVersion != d.SchemaVersion {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("milestone schema version %d does not match domain %s version %d", s.SchemaVersion, id, d.SchemaVersion))
	}
	for name := range s.Facts {
		if !d.Declares(name) {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("undeclared milestone %q for domain %s", name, id))
		}
	}
	return nil
}

// ValidateSnapshotSet validates every entry of a multi-domain snapshot.
func (r *Registry) ValidateSnapshotSet(set SnapshotSet) error {
	for id, snap := range set {
		if err := r.ValidateMilestones(id, snap); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSignals checks a signal snapshot against the declared signal schema.
func (r *Registry) ValidateSignals(s SignalSnapshot) error {
	if s.SchemaVersion != r.signalVersion {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("signal schema version %d does not match catalog version %d", s.SchemaVersion, r.signalVersion))
	}
	for name, v := range s.Counters {
		if _, ok := r.signals[name]; !ok {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("undeclared signal %q", name))
		}
		if v < 0 {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("signal %q is negative", name))
		}
	}
	return nil
}

// Rules returns the compliance rule table in declaration order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// KnownFeature reports whether any level unlock or rule references feature.
func (r *Registry) KnownFeature(f domain.Feature) bool {
	_, ok := r.features[f]
	return ok
}

// RequireFeature returns CodeUnknownFeature for features outside the catalog.
func (r *Registry) RequireFeature(f domain.Feature) error {
	if !r.KnownFeature(f) {
		return dErrors.New(dErrors.CodeUnknownFeature, "unknown feature: "+string(f))
	}
	return nil
}

// KnownAction reports whether any rule can be fulfilled by action.
func (r *Registry) KnownAction(a domain.Action) bool {
	for _, rule := range r.rules {
		if rule.FulfillingAction == a {
			return true
		}
	}
	return false
}
