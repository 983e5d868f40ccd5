package services

import (
	"strings"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/logger"
)

// CrossRefValidator checks that aggregated scenarios actually span the
// units they claim to integrate: a module-level scenario must touch a
// minimum number of distinct pages, a project-level one a minimum number
// of distinct modules. Scenarios below the minimum are downgraded to
// needs_review, never dropped - a human decides whether a narrow
// scenario is still worth keeping.
type CrossRefValidator struct {
	minRefs int
}

// NewCrossRefValidator creates a validator requiring at least minRefs
// distinct references per scenario (default 3).
func NewCrossRefValidator(minRefs int) *CrossRefValidator {
	if minRefs <= 0 {
		minRefs = 3
	}
	return &CrossRefValidator{minRefs: minRefs}
}

// Validate sets the validation status of every scenario in place and
// returns how many were downgraded to needs_review.
func (v *CrossRefValidator) Validate(scenarios []domain.Scenario) int {
	var flagged int
	for i := range scenarios {
		if v.refCount(&scenarios[i]) >= v.minRefs {
			scenarios[i].ValidationStatus = domain.ValidationPassed
		} else {
			scenarios[i].ValidationStatus = domain.ValidationNeedsReview
			flagged++
		}
	}
	if flagged > 0 {
		logger.Info("Cross-reference validation flagged %d of %d scenarios for review", flagged, len(scenarios))
	}
	return flagged
}

// refCount counts distinct references, falling back to bracket-tagged
// action prefixes ("[checkout] Add item to cart") when a model put the
// touchpoints in the step text instead of the refs field.
func (v *CrossRefValidator) refCount(s *domain.Scenario) int {
	if refs := s.DistinctRefs(); len(refs) > 0 {
		return len(refs)
	}

	seen := make(map[string]bool)
	for i := range s.Steps {
		tag := leadingBracketTag(s.Steps[i].Action)
		if tag != "" {
			seen[strings.ToLower(tag)] = true
		}
	}
	return len(seen)
}

// leadingBracketTag extracts the "[tag]" prefix of a step action, or "".
func leadingBracketTag(action string) string {
	action = strings.TrimSpace(action)
	if !strings.HasPrefix(action, "[") {
		return ""
	}
	end := strings.IndexByte(action, ']')
	if end <= 1 {
		return ""
	}
	return strings.TrimSpace(action[1:end])
}
