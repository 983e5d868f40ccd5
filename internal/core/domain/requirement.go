package domain

import "strings"

// Requirement is one target change requirement extracted from a
// specification page. Requirements drive relevance ranking: reference
// chunks are scored against the set of requirements a generation
// request is about to cover.
type Requirement struct {
	// ID is the unique identifier for the requirement.
	ID string

	// Title is the short requirement summary.
	Title string

	// Description is the full requirement text.
	Description string

	// AcceptanceCriteria lists the acceptance items, one per entry.
	AcceptanceCriteria []string

	// AffectedAreas tags the pages, screens or modules the requirement
	// touches.
	AffectedAreas []string
}

// FlatText joins the requirement's textual fields into a single string
// for coarse whole-text similarity comparison.
func (r *Requirement) FlatText() string {
	parts := make([]string, 0, 2+len(r.AcceptanceCriteria)+len(r.AffectedAreas))
	parts = append(parts, r.Title, r.Description)
	parts = append(parts, r.AcceptanceCriteria...)
	parts = append(parts, r.AffectedAreas...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Keywords extracts the requirement's keyword set for cheap matching.
func (r *Requirement) Keywords() []string {
	return ExtractKeywords(r.FlatText())
}
