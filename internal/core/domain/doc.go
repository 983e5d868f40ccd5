// Package domain defines the core business entities for Scengen.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Scenario: A structured QA test case produced by generation
//   - Chunk: A heading-scoped slice of a large reference document
//   - Requirement: A target change requirement used for relevance ranking
//   - SubJob / BatchJob: One generation task and the batch that owns it
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
