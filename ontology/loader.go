package ontology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File layout expected under the definitions directory:
//
//	<dir>/
//	    marketing.yaml      one file per domain
//	    delivery.yaml
//	    product.yaml
//	    _relations.yaml     relation entries grouped by section
//	    business_rules.yaml rule entries under marketing_rules
const (
	relationsFile = "_relations.yaml"
	rulesFile     = "business_rules.yaml"
)

type domainFile struct {
	Domain       string                 `yaml:"domain"`
	Description  string                 `yaml:"description"`
	Version      string                 `yaml:"version"`
	Concepts     map[string]conceptDef  `yaml:"concepts"`
	TableMapping map[string]string      `yaml:"table_mapping"`
	Extra        map[string]interface{} `yaml:",inline"`
}

type conceptDef struct {
	Description string   `yaml:"description"`
	Properties  []string `yaml:"properties"`
}

type relationDef struct {
	Relation    string `yaml:"relation"`
	From        string `yaml:"from"`
	To          string `yaml:"to"`
	Via         string `yaml:"via"`
	Description string `yaml:"description"`
	Cardinality string `yaml:"cardinality"`
}

type rulesFileDef struct {
	MarketingRules []ruleDef `yaml:"marketing_rules"`
}

type ruleDef struct {
	ID                        string `yaml:"id"`
	Name                      string `yaml:"name"`
	Condition                 string `yaml:"condition"`
	Action                    string `yaml:"action"`
	Priority                  string `yaml:"priority"`
	Description               string `yaml:"description"`
	StaffAlertTemplate        string `yaml:"staff_alert_template"`
	InfluencerMessageTemplate string `yaml:"influencer_message_template"`
	Expression                string `yaml:"expression"`
}

// loadSnapshot parses every definition file under dir into a fresh snapshot.
// Nothing is shared with previously loaded state, so a failure here leaves
// the caller's current snapshot untouched.
func loadSnapshot(dir string) (*snapshot, error) {
	snap := &snapshot{
		concepts:      make(map[string]map[string]DomainConcept),
		rulesByID:     make(map[string]BusinessRule),
		tableMappings: make(map[string]map[string]string),
	}

	if err := loadDomains(dir, snap); err != nil {
		return nil, err
	}
	if err := loadRelations(dir, snap); err != nil {
		return nil, err
	}
	if err := loadRules(dir, snap); err != nil {
		return nil, err
	}

	// Deterministic rule order for evaluation and for callers listing rules.
	sort.Slice(snap.rules, func(i, j int) bool { return snap.rules[i].ID < snap.rules[j].ID })
	sort.Slice(snap.domains, func(i, j int) bool { return snap.domains[i].Name < snap.domains[j].Name })

	return snap, nil
}

func loadDomains(dir string, snap *snapshot) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read ontology directory %s: %w", dir, err)
	}

	found := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		if name == relationsFile || name == rulesFile {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read domain file %s: %w", name, err)
		}

		var df domainFile
		if err := yaml.Unmarshal(data, &df); err != nil {
			return fmt.Errorf("invalid domain file %s: %w", name, err)
		}

		domainName := df.Domain
		if domainName == "" {
			domainName = strings.TrimSuffix(name, ".yaml")
		}
		if _, exists := snap.concepts[domainName]; exists {
			return fmt.Errorf("duplicate domain %q defined in %s", domainName, name)
		}

		snap.domains = append(snap.domains, Domain{
			Name:        domainName,
			Description: df.Description,
			Version:     df.Version,
		})

		concepts := make(map[string]DomainConcept, len(df.Concepts))
		for conceptName, def := range df.Concepts {
			concepts[conceptName] = DomainConcept{
				Name:        conceptName,
				Description: def.Description,
				Properties:  def.Properties,
				Domain:      domainName,
			}
		}
		snap.concepts[domainName] = concepts

		if len(df.TableMapping) > 0 {
			mapping := make(map[string]string, len(df.TableMapping))
			for concept, table := range df.TableMapping {
				mapping[concept] = table
			}
			snap.tableMappings[domainName] = mapping
		}

		found++
	}

	if found == 0 {
		return fmt.Errorf("no domain files found in %s", dir)
	}
	return nil
}

func loadRelations(dir string, snap *snapshot) error {
	path := filepath.Join(dir, relationsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read relations file: %w", err)
	}

	// Sections are free-form top-level keys, each holding a list of
	// relation entries. version/description metadata keys are skipped.
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("invalid relations file: %w", err)
	}

	sectionNames := make([]string, 0, len(sections))
	for name := range sections {
		if name == "version" || name == "description" {
			continue
		}
		sectionNames = append(sectionNames, name)
	}
	sort.Strings(sectionNames)

	for _, section := range sectionNames {
		node := sections[section]
		if node.Kind != yaml.SequenceNode {
			continue
		}
		var defs []relationDef
		if err := node.Decode(&defs); err != nil {
			return fmt.Errorf("invalid relation section %q: %w", section, err)
		}
		for _, def := range defs {
			if def.Relation == "" {
				continue
			}
			snap.relations = append(snap.relations, DomainRelation{
				Relation:    def.Relation,
				FromEntity:  def.From,
				ToEntity:    def.To,
				Via:         def.Via,
				Description: def.Description,
				Cardinality: def.Cardinality,
				Section:     section,
			})
		}
	}
	return nil
}

func loadRules(dir string, snap *snapshot) error {
	path := filepath.Join(dir, rulesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf rulesFileDef
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("invalid rules file: %w", err)
	}

	for _, def := range rf.MarketingRules {
		rule := BusinessRule{
			ID:                        def.ID,
			Name:                      def.Name,
			Condition:                 def.Condition,
			Action:                    def.Action,
			Priority:                  Priority(def.Priority),
			Description:               def.Description,
			StaffAlertTemplate:        def.StaffAlertTemplate,
			InfluencerMessageTemplate: def.InfluencerMessageTemplate,
			Expression:                def.Expression,
		}
		if _, exists := snap.rulesByID[rule.ID]; exists {
			return fmt.Errorf("duplicate business rule ID %q", rule.ID)
		}
		snap.rules = append(snap.rules, rule)
		snap.rulesByID[rule.ID] = rule
	}
	return nil
}
