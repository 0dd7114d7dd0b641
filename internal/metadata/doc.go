// Package metadata caches per-project schema: issue types and subtypes,
// status definitions, and custom attribute definitions.
//
// The cache is an expirable LRU keyed by project ID. Entries live for a
// configurable TTL; an expired or missing entry is fetched from the
// remote API, and concurrent requests for the same project during a
// miss collapse into a single outbound fetch (singleflight).
//
// Consumers treat ProjectMetadata as read-only. The field mapper uses it
// to resolve natural-language issue fields to valid identifiers.
package metadata
