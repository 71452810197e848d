// Package extract handles the resume intake stage: upload validation,
// optional fetch-by-URL, and LLM-backed skill extraction.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/retry"
)

// extractionSystemPrompt steers the model toward concrete, assessable skills.
const extractionSystemPrompt = `You are an expert technical recruiter. ` +
	`You identify the concrete, assessable technical skills a candidate lists on a resume. ` +
	`Prefer specific technologies and disciplines over soft skills or job titles.`

// SkillExtractor extracts the top technical skills from a resume.
type SkillExtractor interface {
	// Extract returns up to count skills, most prominent first.
	Extract(ctx context.Context, resume string, count int) ([]string, error)
}

// LLMExtractor implements SkillExtractor with a single LLM call executed
// under the shared retry policy.
type LLMExtractor struct {
	client llm.Client
	exec   *retry.Executor
	logger zerolog.Logger
}

// NewLLMExtractor creates an LLMExtractor.
func NewLLMExtractor(client llm.Client, exec *retry.Executor, logger zerolog.Logger) *LLMExtractor {
	return &LLMExtractor{client: client, exec: exec, logger: logger}
}

// Extract asks the model for the resume's top skills and parses the JSON
// reply. Duplicate and blank skill names are dropped; an empty result is an
// error, since the rest of the run has nothing to work with.
func (e *LLMExtractor) Extract(ctx context.Context, resume string, count int) ([]string, error) {
	prompt := buildExtractionPrompt(resume, count)

	var resp *llm.Response
	err := e.exec.Do(ctx, domain.ServiceExtraction, "extract_skills", func(ctx context.Context) error {
		r, err := e.client.Complete(ctx, llm.Request{
			System:      extractionSystemPrompt,
			Prompt:      prompt,
			Temperature: 0.2,
			JSONOutput:  true,
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("skill extraction failed: %w", err)
	}

	var parsed domain.ExtractedSkills
	if err := llm.UnmarshalCompletion(resp.Text, &parsed); err != nil {
		return nil, fmt.Errorf("skill extraction returned unparseable output: %w", err)
	}

	skills := dedupeSkills(parsed.Skills, count)
	if len(skills) == 0 {
		return nil, fmt.Errorf("skill extraction: %w", domain.ErrEmptyResponse)
	}

	e.logger.Info().Int("skills", len(skills)).Msg("extracted skills from resume")
	return skills, nil
}

// buildExtractionPrompt renders the user prompt for one extraction call.
func buildExtractionPrompt(resume string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identify the top %d technical skills from the resume below.\n", count)
	b.WriteString("Respond with a JSON object of the form {\"skills\": [\"skill 1\", \"skill 2\", ...]}, ")
	b.WriteString("ordered from most to least prominent. Respond with JSON only.\n\n")
	b.WriteString("Resume:\n")
	b.WriteString(resume)
	return b.String()
}

// dedupeSkills trims, drops blanks and case-insensitive duplicates, and caps
// the list at count while preserving order.
func dedupeSkills(skills []string, count int) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if len(out) == count {
			break
		}
	}
	return out
}
