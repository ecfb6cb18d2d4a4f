package cache

import "fmt"

// KeyBuilder provides environment-aware cache key building so staging and
// production deployments sharing a Redis instance never collide.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a key builder with an environment-based prefix.
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// GetPrefix returns the current environment prefix.
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// ReportKey builds the cache key for an aggregated traffic report:
// traffic-<rangeClass>-<periodKey>, e.g. traffic-week-2026-W35.
func (kb *KeyBuilder) ReportKey(rangeClass, periodKey string) string {
	return fmt.Sprintf("%s:traffic-%s-%s", kb.prefix, rangeClass, periodKey)
}
