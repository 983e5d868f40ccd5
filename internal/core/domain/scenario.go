package domain

import "strings"

// ValidationStatus is the outcome of post-generation structural validation.
// The zero value means the scenario has not been validated.
type ValidationStatus string

const (
	// ValidationPassed indicates the scenario met all structural checks.
	ValidationPassed ValidationStatus = "passed"

	// ValidationNeedsReview indicates the scenario failed a structural
	// check (e.g. too few distinct cross-references) and should be
	// reviewed manually rather than silently accepted.
	ValidationNeedsReview ValidationStatus = "needs_review"
)

// Step is a single action within a test scenario.
type Step struct {
	// Action describes what the tester does.
	Action string `json:"action"`

	// Input is the data supplied with the action, if any.
	Input string `json:"input,omitempty"`

	// Expected is the observable outcome the tester verifies.
	Expected string `json:"expected"`

	// Refs lists the page or module identifiers this step touches.
	// Aggregation-level validation counts distinct refs per scenario.
	Refs []string `json:"refs,omitempty"`
}

// Scenario is one structured test case produced by generation.
//
// A scenario's TestID is unique process-wide. Deduplication and
// aggregation never change a scenario's identity, only its
// ValidationStatus and grouping.
type Scenario struct {
	TestID           string           `json:"test_id"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Preconditions    []string         `json:"preconditions,omitempty"`
	Steps            []Step           `json:"steps"`
	Classification   string           `json:"classification,omitempty"`
	Priority         string           `json:"priority,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty"`
}

// ScenarioWithSource wraps a scenario with the provenance needed for
// deduplication reporting and aggregation grouping.
type ScenarioWithSource struct {
	Scenario    Scenario `json:"scenario"`
	SourceID    string   `json:"source_id"`
	SourceJobID string   `json:"source_job_id,omitempty"`
	SourceName  string   `json:"source_name,omitempty"`
}

// ComparisonKey flattens the scenario's name, description, preconditions
// and step text into a lower-cased, whitespace-normalised string.
// Deduplication compares scenarios by this key, so two scenarios that
// differ only in casing or whitespace compare as identical.
func (s *Scenario) ComparisonKey() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte(' ')
	b.WriteString(s.Description)
	for _, p := range s.Preconditions {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	for i := range s.Steps {
		b.WriteByte(' ')
		b.WriteString(s.Steps[i].Action)
		b.WriteByte(' ')
		b.WriteString(s.Steps[i].Input)
		b.WriteByte(' ')
		b.WriteString(s.Steps[i].Expected)
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

// DistinctRefs returns the distinct step references across the whole
// scenario. Refs are compared case-insensitively.
func (s *Scenario) DistinctRefs() []string {
	seen := make(map[string]bool)
	var refs []string
	for i := range s.Steps {
		for _, ref := range s.Steps[i].Refs {
			key := strings.ToLower(strings.TrimSpace(ref))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
