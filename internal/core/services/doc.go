// Package services implements the core generation-and-aggregation
// pipeline: relevance scoring of reference chunks, provider invocation
// with a primary/fallback profile chain, scenario deduplication,
// bounded-concurrency sub-job scheduling, and the three-level
// hierarchical aggregator.
//
// Services depend only on the domain package and the driven/driving
// ports; adapters are injected at construction. Every service takes an
// explicit configuration struct with documented defaults - no service
// reads the environment.
package services
