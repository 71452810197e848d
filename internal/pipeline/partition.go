// Package pipeline implements the concurrent batch orchestration engine:
// partitioning skills into batches, running the discovery and generation
// stages per batch under bounded concurrency, aggregating events, and
// enforcing the global run deadline.
package pipeline

import (
	"fmt"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// Partition splits skills into ordered batches of at most batchSize. The
// concatenation of all batches reproduces the input order exactly; the final
// batch holds the remainder. A non-positive batchSize is a configuration
// error and fails before any work starts.
func Partition(skills []string, batchSize int) ([]domain.Batch, error) {
	if batchSize <= 0 {
		return nil, domain.NewConfigurationError("batch_size",
			fmt.Sprintf("must be positive, got %d", batchSize))
	}

	batches := make([]domain.Batch, 0, (len(skills)+batchSize-1)/batchSize)
	for start := 0; start < len(skills); start += batchSize {
		end := start + batchSize
		if end > len(skills) {
			end = len(skills)
		}
		batches = append(batches, domain.Batch{
			Index:  len(batches) + 1,
			Skills: skills[start:end],
		})
	}
	return batches, nil
}
