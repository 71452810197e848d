package domain

// Service names used by the rate limiter, retry executor and metrics labels.
// Each name identifies one external dependency with its own rate budget.
const (
	// ServiceExtraction is the skill extraction provider.
	ServiceExtraction = "extraction"

	// ServiceDiscovery is the source discovery provider.
	ServiceDiscovery = "discovery"

	// ServiceGeneration is the question generation provider.
	ServiceGeneration = "generation"
)
