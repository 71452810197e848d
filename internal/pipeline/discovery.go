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

// SourceDiscoverer finds supporting technical material for a group of skills.
// Implementations return one SkillSource per requested skill; a skill the
// provider found nothing for carries empty content rather than being omitted.
type SourceDiscoverer interface {
	Discover(ctx context.Context, skills []string) ([]domain.SkillSource, error)
}

// LLMDiscoverer implements SourceDiscoverer with a search-grounded LLM call.
// One call covers the whole group; the response is a markdown document with
// one "## {Skill}" section per skill.
type LLMDiscoverer struct {
	client llm.Client
	exec   *retry.Executor
	logger zerolog.Logger
}

// NewLLMDiscoverer creates an LLMDiscoverer.
func NewLLMDiscoverer(client llm.Client, exec *retry.Executor, logger zerolog.Logger) *LLMDiscoverer {
	return &LLMDiscoverer{client: client, exec: exec, logger: logger}
}

// Discover runs one grounded search call for the group and splits the
// response into per-skill sections. Skills missing from the response get an
// empty source; a malformed response degrades to empty sources instead of
// failing the batch.
func (d *LLMDiscoverer) Discover(ctx context.Context, skills []string) ([]domain.SkillSource, error) {
	var resp *llm.Response
	err := d.exec.Do(ctx, domain.ServiceDiscovery, "discover_sources", func(ctx context.Context) error {
		r, err := d.client.Complete(ctx, llm.Request{
			Prompt:      buildDiscoveryPrompt(skills),
			Temperature: 0.3,
			WebSearch:   true,
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("discovery: %w", domain.ErrEmptyResponse)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source discovery failed: %w", err)
	}

	sources := parseDiscoveryResponse(resp.Text, skills)

	found := 0
	for _, s := range sources {
		if s.HasContent() {
			found++
		}
	}
	d.logger.Debug().
		Int("skills", len(skills)).
		Int("with_content", found).
		Msg("source discovery parsed")

	return sources, nil
}

// buildDiscoveryPrompt renders the grounded search prompt for one group.
// The per-skill "## {Skill}" markers let the response be split back apart.
func buildDiscoveryPrompt(skills []string) string {
	var b strings.Builder
	b.WriteString("You are an expert technical researcher. Research each of the following skills:\n")
	for _, skill := range skills {
		fmt.Fprintf(&b, "- %s\n", skill)
	}
	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("For EACH skill, produce a section starting with the marker '## {SkillName}'.\n")
	b.WriteString("1. GOAL: Extract dense, technical content for expert interviewers (trade-offs, misconceptions, patterns).\n")
	b.WriteString("2. SOURCE HANDLING: Use web search to find information, BUT:\n")
	b.WriteString("   - Synthesize the knowledge into your own words.\n")
	b.WriteString("   - Do NOT output a 'Sources' or 'References' list.\n")
	b.WriteString("   - Do NOT output URLs or website titles in the text.\n")
	b.WriteString("3. FORMAT:\n")
	b.WriteString("   ## {SkillName}\n")
	b.WriteString("   [Deep technical summary paragraphs...]\n")
	b.WriteString("   Provide a section for EVERY requested skill. Do not combine them.\n")
	b.WriteString("   The header must be exactly '## {SkillName}' with no extra colons or words.\n")
	return b.String()
}

// parseDiscoveryResponse splits a marker-formatted response into one source
// per requested skill. Section headers are matched case-insensitively against
// the requested skill names; unmatched skills get empty content. If the
// response carries no markers at all and exactly one skill was requested, the
// whole text is attributed to it.
func parseDiscoveryResponse(text string, skills []string) []domain.SkillSource {
	sections := splitSections(text)

	if len(sections) == 0 && len(skills) == 1 && strings.TrimSpace(text) != "" {
		return []domain.SkillSource{{Skill: skills[0], Content: strings.TrimSpace(text)}}
	}

	sources := make([]domain.SkillSource, 0, len(skills))
	for _, skill := range skills {
		content := ""
		for header, body := range sections {
			if headerMatchesSkill(header, skill) {
				content = body
				break
			}
		}
		sources = append(sources, domain.SkillSource{Skill: skill, Content: content})
	}
	return sources
}

// splitSections breaks a markdown document into header -> body pairs at each
// "## " line.
func splitSections(text string) map[string]string {
	sections := make(map[string]string)
	var header string
	var body strings.Builder

	flush := func() {
		if header != "" {
			sections[header] = strings.TrimSpace(body.String())
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			header = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			continue
		}
		if header != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

// headerMatchesSkill compares a section header to a requested skill name,
// tolerating case differences and stray braces from models echoing the
// '{SkillName}' placeholder literally.
func headerMatchesSkill(header, skill string) bool {
	normalize := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.Trim(s, "{}")
		return strings.ToLower(strings.TrimSpace(s))
	}
	return normalize(header) == normalize(skill)
}
