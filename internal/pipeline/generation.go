package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/llm"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/retry"
)

// noContextMarker stands in for an empty merged context. Prompts switch to
// the context-free variant when they see it.
const noContextMarker = "No technical context available."

// QuestionGenerator produces interview questions for a group of skills given
// their merged discovered context.
type QuestionGenerator interface {
	// Generate returns one SkillQuestions per skill the model covered. The
	// model's returned skill names are canonical and may differ textually
	// from the requested ones.
	Generate(ctx context.Context, skills []string, contextStr string) (*domain.QuestionSet, error)
}

// LLMGenerator implements QuestionGenerator with a JSON-mode chat completion
// executed under the shared retry policy.
type LLMGenerator struct {
	client      llm.Client
	exec        *retry.Executor
	logger      zerolog.Logger
	temperature float64
}

// NewLLMGenerator creates an LLMGenerator.
func NewLLMGenerator(client llm.Client, exec *retry.Executor, logger zerolog.Logger, temperature float64) *LLMGenerator {
	return &LLMGenerator{client: client, exec: exec, logger: logger, temperature: temperature}
}

// Generate calls the generation model once (plus retries) for the group. An
// unparseable completion counts as a retryable failure; after the retry
// budget it surfaces as an error for the caller to turn into per-skill error
// events.
func (g *LLMGenerator) Generate(ctx context.Context, skills []string, contextStr string) (*domain.QuestionSet, error) {
	prompt := buildGenerationPrompt(skills, contextStr)

	var result *domain.QuestionSet
	err := g.exec.Do(ctx, domain.ServiceGeneration, "generate_questions", func(ctx context.Context) error {
		resp, err := g.client.Complete(ctx, llm.Request{
			Prompt:      prompt,
			Temperature: g.temperature,
			JSONOutput:  true,
		})
		if err != nil {
			return err
		}

		var parsed domain.QuestionSet
		if err := llm.UnmarshalCompletion(resp.Text, &parsed); err != nil {
			return fmt.Errorf("generation returned unparseable output: %w", err)
		}
		if len(parsed.AllQuestions) == 0 {
			return fmt.Errorf("generation: %w", domain.ErrEmptyResponse)
		}
		result = &parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}
	return result, nil
}

// buildGenerationPrompt renders the generation prompt for a group of skills.
// Without usable context it falls back to the context-free variant, which
// asks for conceptual questions that need no source material.
func buildGenerationPrompt(skills []string, contextStr string) string {
	if strings.TrimSpace(contextStr) == "" || strings.Contains(contextStr, noContextMarker) {
		return buildContextFreePrompt(skills)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate insightful, technical interview questions for %s.\n", skillsPhrase(skills))
	fmt.Fprintf(&b, "Use the provided technical context:\n%s\n\n", contextStr)
	b.WriteString("Focus on conceptual understanding, analysis and comparison, and real-world applications.\n")
	b.WriteString("Questions should reveal deep technical knowledge.\n\n")
	b.WriteString(generationOutputSchema)
	return b.String()
}

// buildContextFreePrompt renders the prompt used when no sources were found
// for a skill.
func buildContextFreePrompt(skills []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate verbal technical interview questions for %s.\n\n", skillsPhrase(skills))
	b.WriteString("IMPORTANT GUIDELINES:\n")
	b.WriteString("- Generate questions that test CONCEPTUAL understanding, not syntax or code\n")
	b.WriteString("- Focus on fundamental concepts, principles, and theoretical knowledge\n")
	b.WriteString("- Ask about trade-offs, use cases, and design decisions\n")
	b.WriteString("- Avoid questions requiring specific code implementations\n")
	b.WriteString("- Questions should be suitable for verbal discussion in an interview\n")
	b.WriteString("- Focus on 'what', 'why', 'when', and 'how' rather than implementation details\n\n")
	b.WriteString(generationOutputSchema)
	return b.String()
}

const generationOutputSchema = "Return ONLY a JSON object with this structure:\n" +
	`{"all_questions": [{"skill": "...", "questions": ["question1", "question2", ...]}]}`

func skillsPhrase(skills []string) string {
	if len(skills) == 1 {
		return fmt.Sprintf("this skill: %s", skills[0])
	}
	return fmt.Sprintf("these skills: %s", strings.Join(skills, ", "))
}
