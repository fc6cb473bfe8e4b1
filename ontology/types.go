package ontology

// Priority ranks a business rule for triage.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Domain is a named partition of the ontology grouping related concepts.
type Domain struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// DomainConcept is a named entity type within a domain.
type DomainConcept struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Properties  []string `json:"properties"`
	Domain      string   `json:"domain"`
}

// DomainRelation is a typed, cardinality-annotated edge between two
// concepts, possibly across domains. Endpoints use "domain.Concept" form.
type DomainRelation struct {
	Relation    string `json:"relation"`
	FromEntity  string `json:"from_entity"`
	ToEntity    string `json:"to_entity"`
	Via         string `json:"via"`
	Description string `json:"description"`
	Cardinality string `json:"cardinality"`
	Section     string `json:"section"`
}

// BusinessRule is a declarative SLA/compliance definition. Condition and
// Action are human-readable documentation; the rule ID is the dispatch key
// selecting the predicate implementation. Expression optionally carries a
// CEL expression evaluated for rules without a registered predicate.
type BusinessRule struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Condition                 string   `json:"condition"`
	Action                    string   `json:"action"`
	Priority                  Priority `json:"priority"`
	Description               string   `json:"description"`
	StaffAlertTemplate        string   `json:"staff_alert_template,omitempty"`
	InfluencerMessageTemplate string   `json:"influencer_message_template,omitempty"`
	Expression                string   `json:"expression,omitempty"`
}

// Summary aggregates counts across the loaded ontology.
type Summary struct {
	Domains         map[string]int   `json:"domains"` // domain name -> concept count
	TotalRelations  int              `json:"total_relations"`
	TotalRules      int              `json:"total_business_rules"`
	RulesByPriority map[Priority]int `json:"rules_by_priority"`
}
