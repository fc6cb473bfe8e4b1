package ontology

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrRuleNotFound is returned by BusinessRuleByID for unknown rule IDs.
var ErrRuleNotFound = fmt.Errorf("business rule not found")

// snapshot is one immutable, fully loaded view of the ontology. Reloads
// build a new snapshot and swap it in; readers never see a partial load.
type snapshot struct {
	domains       []Domain
	concepts      map[string]map[string]DomainConcept // domain -> concept name -> concept
	relations     []DomainRelation
	rules         []BusinessRule // sorted by ID
	rulesByID     map[string]BusinessRule
	tableMappings map[string]map[string]string // domain -> concept name -> table name
}

// Store indexes domain concepts, inter-domain relations, table mappings and
// business rules loaded from declarative definition files. Reads vastly
// outnumber reloads, so queries serve from a snapshot behind an RWMutex.
type Store struct {
	dir string

	mu   sync.RWMutex
	snap *snapshot
}

// NewStore creates a store reading definitions from dir. The store is empty
// until LoadAll succeeds.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// LoadAll re-parses all definition files and atomically replaces the loaded
// ontology. On failure the previously loaded snapshot is retained.
func (s *Store) LoadAll() error {
	snap, err := loadSnapshot(s.dir)
	if err != nil {
		return fmt.Errorf("ontology load failed: %w", err)
	}
	if err := validateSnapshot(snap); err != nil {
		return fmt.Errorf("ontology validation failed: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Validate re-parses the definition directory and reports the first problem
// found without touching the served snapshot.
func (s *Store) Validate() error {
	snap, err := loadSnapshot(s.dir)
	if err != nil {
		return err
	}
	return validateSnapshot(snap)
}

// Loaded reports whether a snapshot has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return &snapshot{
			concepts:      map[string]map[string]DomainConcept{},
			rulesByID:     map[string]BusinessRule{},
			tableMappings: map[string]map[string]string{},
		}
	}
	return s.snap
}

// Domains returns all loaded domains sorted by name.
func (s *Store) Domains() []Domain {
	snap := s.snapshot()
	out := make([]Domain, len(snap.domains))
	copy(out, snap.domains)
	return out
}

// DomainConcepts returns the concepts of one domain keyed by concept name.
// An unknown domain yields an empty map, not an error.
func (s *Store) DomainConcepts(domain string) map[string]DomainConcept {
	snap := s.snapshot()
	out := make(map[string]DomainConcept, len(snap.concepts[domain]))
	for name, c := range snap.concepts[domain] {
		out[name] = c
	}
	return out
}

// DomainRelations returns relations, optionally filtered by the domain
// prefix of either endpoint. Empty strings match everything.
func (s *Store) DomainRelations(fromDomain, toDomain string) []DomainRelation {
	snap := s.snapshot()
	var out []DomainRelation
	for _, rel := range snap.relations {
		if fromDomain != "" && !strings.HasPrefix(rel.FromEntity, fromDomain+".") {
			continue
		}
		if toDomain != "" && !strings.HasPrefix(rel.ToEntity, toDomain+".") {
			continue
		}
		out = append(out, rel)
	}
	return out
}

// BusinessRules returns rules sorted by ID, optionally filtered by priority.
func (s *Store) BusinessRules(priority Priority) []BusinessRule {
	snap := s.snapshot()
	var out []BusinessRule
	for _, rule := range snap.rules {
		if priority != "" && rule.Priority != priority {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// BusinessRuleByID looks up a single rule. Returns ErrRuleNotFound for
// unknown IDs.
func (s *Store) BusinessRuleByID(id string) (BusinessRule, error) {
	snap := s.snapshot()
	rule, ok := snap.rulesByID[id]
	if !ok {
		return BusinessRule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return rule, nil
}

// SearchConcepts performs a case-insensitive substring match over concept
// names, optionally restricted to one domain. Results are grouped by domain
// with concept names sorted.
func (s *Store) SearchConcepts(query, domain string) map[string][]string {
	snap := s.snapshot()
	needle := strings.ToLower(query)

	out := make(map[string][]string)
	for domainName, concepts := range snap.concepts {
		if domain != "" && domainName != domain {
			continue
		}
		for name := range concepts {
			if strings.Contains(strings.ToLower(name), needle) {
				out[domainName] = append(out[domainName], name)
			}
		}
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// TableMappings resolves concept names to their backing storage tables.
// With a domain it returns that domain's mapping; with an empty domain it
// merges the mappings of every domain.
func (s *Store) TableMappings(domain string) map[string]string {
	snap := s.snapshot()
	out := make(map[string]string)
	if domain != "" {
		for concept, table := range snap.tableMappings[domain] {
			out[concept] = table
		}
		return out
	}
	for _, mapping := range snap.tableMappings {
		for concept, table := range mapping {
			out[concept] = table
		}
	}
	return out
}

// Summary aggregates concept, relation and rule counts for dashboards and
// health endpoints.
func (s *Store) Summary() Summary {
	snap := s.snapshot()
	sum := Summary{
		Domains:         make(map[string]int, len(snap.domains)),
		TotalRelations:  len(snap.relations),
		TotalRules:      len(snap.rules),
		RulesByPriority: make(map[Priority]int),
	}
	for _, d := range snap.domains {
		sum.Domains[d.Name] = len(snap.concepts[d.Name])
	}
	for _, rule := range snap.rules {
		sum.RulesByPriority[rule.Priority]++
	}
	return sum
}
