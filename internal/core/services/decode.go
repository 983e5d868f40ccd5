package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// scenarioWire mirrors the strict response schema the prompts request.
type scenarioWire struct {
	TestID         string     `json:"test_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Preconditions  []string   `json:"preconditions"`
	Steps          []stepWire `json:"steps"`
	Classification string     `json:"classification"`
	Priority       string     `json:"priority"`
}

// stepWire mirrors the strict step schema.
type stepWire struct {
	Action   string   `json:"action"`
	Input    string   `json:"input"`
	Expected string   `json:"expected"`
	Refs     []string `json:"refs"`
}

// scenarioEnvelope is the expected top-level object shape.
type scenarioEnvelope struct {
	Scenarios []json.RawMessage `json:"scenarios"`
}

// Field-alias tables for lenient decoding. Providers drift between
// snake_case, camelCase and synonym field names; each canonical field
// maps to the exact names accepted for it, tried in order. Every
// mapping is total: an alias either resolves to a raw value or it
// doesn't, with no further guessing.
var scenarioAliases = map[string][]string{
	"test_id":        {"test_id", "testId", "id"},
	"name":           {"name", "title", "scenario_name", "scenario"},
	"description":    {"description", "summary", "desc"},
	"preconditions":  {"preconditions", "pre_conditions", "prerequisites", "preConditions"},
	"steps":          {"steps", "test_steps", "testSteps", "actions"},
	"classification": {"classification", "type", "category"},
	"priority":       {"priority", "severity"},
}

var stepAliases = map[string][]string{
	"action":   {"action", "step", "description", "do"},
	"input":    {"input", "data", "test_data", "testData"},
	"expected": {"expected", "expected_result", "expectedResult", "result"},
	"refs":     {"refs", "references", "pages", "modules", "touchpoints"},
}

// decodeScenarios decodes provider output into scenarios. It attempts a
// strict schema decode first; when the strict decode yields nothing
// usable, it re-decodes through the explicit field-alias tables.
func decodeScenarios(content string) ([]domain.Scenario, error) {
	raws, err := topLevelScenarios(content)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no scenarios in response", domain.ErrEmptyResponse)
	}

	scenarios := make([]domain.Scenario, 0, len(raws))
	for _, raw := range raws {
		scenario, ok := decodeStrict(raw)
		if !ok {
			scenario, ok = decodeWithAliases(raw)
		}
		if !ok {
			continue
		}
		scenarios = append(scenarios, scenario)
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: no decodable scenarios in response", domain.ErrMalformedResponse)
	}
	return scenarios, nil
}

// topLevelScenarios extracts the raw scenario objects from either a
// {"scenarios": [...]} envelope or a bare top-level array.
func topLevelScenarios(content string) ([]json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyResponse
	}

	if strings.HasPrefix(content, "[") {
		var raws []json.RawMessage
		if err := json.Unmarshal([]byte(content), &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
		return raws, nil
	}

	var envelope scenarioEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return envelope.Scenarios, nil
}

// decodeStrict decodes one scenario against the canonical schema.
// The result is usable when it has a name and at least one step with
// an action.
func decodeStrict(raw json.RawMessage) (domain.Scenario, bool) {
	var wire scenarioWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Scenario{}, false
	}
	scenario := wire.toDomain()
	return scenario, usable(&scenario)
}

// decodeWithAliases decodes one scenario through the field-alias tables.
func decodeWithAliases(raw json.RawMessage) (domain.Scenario, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Scenario{}, false
	}

	scenario := domain.Scenario{
		TestID:         aliasString(fields, scenarioAliases["test_id"]),
		Name:           aliasString(fields, scenarioAliases["name"]),
		Description:    aliasString(fields, scenarioAliases["description"]),
		Preconditions:  aliasStrings(fields, scenarioAliases["preconditions"]),
		Classification: aliasString(fields, scenarioAliases["classification"]),
		Priority:       aliasString(fields, scenarioAliases["priority"]),
	}

	if rawSteps, ok := aliasLookup(fields, scenarioAliases["steps"]); ok {
		scenario.Steps = decodeSteps(rawSteps)
	}

	return scenario, usable(&scenario)
}

// decodeSteps decodes a step array, tolerating both object steps and
// bare string steps ("click save" becomes an action-only step).
func decodeSteps(raw json.RawMessage) []domain.Step {
	var rawSteps []json.RawMessage
	if err := json.Unmarshal(raw, &rawSteps); err != nil {
		return nil
	}

	steps := make([]domain.Step, 0, len(rawSteps))
	for _, rs := range rawSteps {
		var text string
		if err := json.Unmarshal(rs, &text); err == nil {
			if strings.TrimSpace(text) != "" {
				steps = append(steps, domain.Step{Action: text})
			}
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rs, &fields); err != nil {
			continue
		}
		step := domain.Step{
			Action:   aliasString(fields, stepAliases["action"]),
			Input:    aliasString(fields, stepAliases["input"]),
			Expected: aliasString(fields, stepAliases["expected"]),
			Refs:     aliasStrings(fields, stepAliases["refs"]),
		}
		if step.Action != "" || step.Expected != "" {
			steps = append(steps, step)
		}
	}
	return steps
}

// aliasLookup resolves the first alias present in the field map.
func aliasLookup(fields map[string]json.RawMessage, aliases []string) (json.RawMessage, bool) {
	for _, alias := range aliases {
		if raw, ok := fields[alias]; ok {
			return raw, true
		}
	}
	return nil, false
}

// aliasString resolves an alias to a string value, or "".
func aliasString(fields map[string]json.RawMessage, aliases []string) string {
	raw, ok := aliasLookup(fields, aliases)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// aliasStrings resolves an alias to a string slice, or nil.
func aliasStrings(fields map[string]json.RawMessage, aliases []string) []string {
	raw, ok := aliasLookup(fields, aliases)
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// usable reports whether a decoded scenario carries enough structure to
// keep: a name and at least one step with an action.
func usable(s *domain.Scenario) bool {
	if strings.TrimSpace(s.Name) == "" || len(s.Steps) == 0 {
		return false
	}
	for i := range s.Steps {
		if strings.TrimSpace(s.Steps[i].Action) != "" {
			return true
		}
	}
	return false
}

func (w *scenarioWire) toDomain() domain.Scenario {
	steps := make([]domain.Step, len(w.Steps))
	for i, ws := range w.Steps {
		steps[i] = domain.Step{
			Action:   ws.Action,
			Input:    ws.Input,
			Expected: ws.Expected,
			Refs:     ws.Refs,
		}
	}
	return domain.Scenario{
		TestID:         w.TestID,
		Name:           w.Name,
		Description:    w.Description,
		Preconditions:  w.Preconditions,
		Steps:          steps,
		Classification: w.Classification,
		Priority:       w.Priority,
	}
}

// repairJSON applies one repair pass to provider output that failed
// strict parsing: trim to the outermost brace/bracket span, strip
// trailing commas, and normalise typographic quotes. A repaired result
// that still fails to parse is a hard failure for the attempt.
func repairJSON(content string) string {
	content = trimToJSONSpan(content)
	content = stripTrailingCommas(content)
	content = normaliseQuotes(content)
	return content
}

// trimToJSONSpan cuts the text down to the outermost {...} or [...]
// span, discarding prose or code fences around it.
func trimToJSONSpan(content string) string {
	objStart := strings.IndexByte(content, '{')
	arrStart := strings.IndexByte(content, '[')

	start := objStart
	closer := byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return content
	}

	end := strings.LastIndexByte(content, closer)
	if end <= start {
		return content
	}
	return content[start : end+1]
}

// stripTrailingCommas removes commas that directly precede a closing
// brace or bracket, the most common malformation in model output.
// Commas inside string literals are preserved.
func stripTrailingCommas(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]

		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}

		if c == ',' {
			// Look ahead past whitespace for a closer.
			j := i + 1
			for j < len(content) && (content[j] == ' ' || content[j] == '\t' || content[j] == '\n' || content[j] == '\r') {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue // drop the comma
			}
		}

		b.WriteByte(c)
	}
	return b.String()
}

// normaliseQuotes replaces typographic quotes with plain ones.
func normaliseQuotes(content string) string {
	replacer := strings.NewReplacer(
		"“", `"`, // left double quote
		"”", `"`, // right double quote
		"‘", "'", // left single quote
		"’", "'", // right single quote
	)
	return replacer.Replace(content)
}
