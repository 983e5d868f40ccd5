package domain

import "time"

// DuplicateGroup records one kept scenario and the near-duplicates that
// were collapsed into it. Groups are produced once per dedup run as an
// audit trail and are never re-read by later pipeline stages.
type DuplicateGroup struct {
	// Kept is the representative scenario (first seen in input order).
	Kept ScenarioWithSource `json:"kept"`

	// Duplicates are the scenarios collapsed into Kept.
	Duplicates []ScenarioWithSource `json:"duplicates"`

	// SimilarityScore is the maximum similarity observed in the group.
	SimilarityScore float64 `json:"similarity_score"`
}

// DedupResult is the outcome of one deduplication run.
type DedupResult struct {
	// Unique holds the kept scenarios in input order.
	Unique []ScenarioWithSource

	// Groups holds every group with at least one duplicate.
	Groups []DuplicateGroup
}

// DedupReport is the JSON audit artifact written once per dedup
// invocation. It is purely observational.
type DedupReport struct {
	BatchID         string           `json:"batch_id"`
	Timestamp       time.Time        `json:"timestamp"`
	Threshold       float64          `json:"threshold"`
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
}
