// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - Provider: Invokes a text-generation model
//   - JobStore: Sub-job and batch persistence
//   - ChunkStore: Chunked reference document persistence
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - ReportStore: Dedup audit report output. Without it, reports are skipped.
//   - PromptStore: Customisable prompt templates. Without it, embedded
//     defaults are used.
//   - ConfigStore: Persisted user settings. Only the wiring layer reads
//     it; services take explicit config structs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
