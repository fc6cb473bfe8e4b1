package ontology

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	templateField   = regexp.MustCompile(`\{([^{}]*)\}`)
	validEntityRef  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*\.[a-zA-Z_][a-zA-Z0-9_]*$`)
	validRuleID     = regexp.MustCompile(`^[A-Z][A-Z0-9]*_[0-9]{3}$`)
)

// validateSnapshot checks a freshly parsed snapshot before it is swapped in.
// A snapshot that fails here is discarded and the store keeps serving the
// previous one.
func validateSnapshot(snap *snapshot) error {
	if len(snap.domains) == 0 {
		return fmt.Errorf("ontology must define at least one domain")
	}

	for _, domain := range snap.domains {
		if err := validateName(domain.Name); err != nil {
			return fmt.Errorf("invalid domain name %q: %w", domain.Name, err)
		}
		for conceptName := range snap.concepts[domain.Name] {
			if err := validateName(conceptName); err != nil {
				return fmt.Errorf("invalid concept name %q in domain %q: %w", conceptName, domain.Name, err)
			}
		}
		for concept, table := range snap.tableMappings[domain.Name] {
			if _, ok := snap.concepts[domain.Name][concept]; !ok {
				return fmt.Errorf("table mapping in domain %q references unknown concept %q", domain.Name, concept)
			}
			if strings.TrimSpace(table) == "" {
				return fmt.Errorf("concept %q in domain %q maps to an empty table name", concept, domain.Name)
			}
		}
	}

	for _, rel := range snap.relations {
		if err := validateEndpoint(snap, rel.FromEntity); err != nil {
			return fmt.Errorf("relation %q: invalid from endpoint: %w", rel.Relation, err)
		}
		if err := validateEndpoint(snap, rel.ToEntity); err != nil {
			return fmt.Errorf("relation %q: invalid to endpoint: %w", rel.Relation, err)
		}
	}

	for _, rule := range snap.rules {
		if !validRuleID.MatchString(rule.ID) {
			return fmt.Errorf("rule ID %q must match pattern PREFIX_NNN (e.g. MKT_001)", rule.ID)
		}
		if rule.Name == "" {
			return fmt.Errorf("rule %s has no name", rule.ID)
		}
		if !rule.Priority.Valid() {
			return fmt.Errorf("rule %s has invalid priority %q (must be high, medium or low)", rule.ID, rule.Priority)
		}
		if err := validateTemplate(rule.StaffAlertTemplate); err != nil {
			return fmt.Errorf("rule %s: invalid staff alert template: %w", rule.ID, err)
		}
		if err := validateTemplate(rule.InfluencerMessageTemplate); err != nil {
			return fmt.Errorf("rule %s: invalid influencer message template: %w", rule.ID, err)
		}
	}

	return nil
}

// validateName validates a domain or concept name.
func validateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("name length %d exceeds maximum of 100 characters", len(name))
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$ (start with letter or underscore, followed by letters, digits, or underscores)")
	}
	return nil
}

// validateEndpoint checks that a relation endpoint has "domain.Concept"
// form and references a concept the snapshot actually defines.
func validateEndpoint(snap *snapshot, endpoint string) error {
	if !validEntityRef.MatchString(endpoint) {
		return fmt.Errorf("endpoint %q must have domain.Concept form", endpoint)
	}
	parts := strings.SplitN(endpoint, ".", 2)
	concepts, ok := snap.concepts[parts[0]]
	if !ok {
		return fmt.Errorf("endpoint %q references unknown domain %q", endpoint, parts[0])
	}
	if _, ok := concepts[parts[1]]; !ok {
		return fmt.Errorf("endpoint %q references unknown concept %q in domain %q", endpoint, parts[1], parts[0])
	}
	return nil
}

// validateTemplate checks that every {placeholder} in a message template is
// a well-formed field name. Which fields carry values is decided at dispatch
// time; an empty template is allowed and means "no message on this channel".
func validateTemplate(tpl string) error {
	if tpl == "" {
		return nil
	}
	if strings.Count(tpl, "{") != strings.Count(tpl, "}") {
		return fmt.Errorf("unbalanced braces in template %q", tpl)
	}
	for _, match := range templateField.FindAllStringSubmatch(tpl, -1) {
		field := match[1]
		if field == "" {
			return fmt.Errorf("empty placeholder in template %q", tpl)
		}
		if !validIdentifier.MatchString(field) {
			return fmt.Errorf("invalid placeholder %q in template %q", field, tpl)
		}
	}
	return nil
}
