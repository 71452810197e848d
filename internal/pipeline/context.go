package pipeline

import (
	"fmt"
	"strings"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// buildContext merges discovered sources for the given skills into one
// context string. Sources without usable content are skipped; an empty merge
// yields the no-context marker, which routes prompts to the context-free
// variant.
func buildContext(sources []domain.SkillSource, skills []string) string {
	want := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		want[s] = struct{}{}
	}

	parts := make([]string, 0, len(skills))
	for _, src := range sources {
		if _, ok := want[src.Skill]; !ok {
			continue
		}
		if !src.HasContent() {
			continue
		}
		parts = append(parts, fmt.Sprintf("Skill: %s\n%s", src.Skill, strings.TrimSpace(src.Content)))
	}

	if len(parts) == 0 {
		return noContextMarker
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// estimateTokens approximates the token count of s as byte length divided by
// the configured divisor. A coarse, provider-specific heuristic; it only
// needs to be monotonic in the text size.
func estimateTokens(s string, divisor int) int {
	if divisor <= 0 {
		divisor = 4
	}
	return len(s) / divisor
}
