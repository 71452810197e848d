// Package domain contains the core types shared across the interview prep
// service: skills, batches, discovered sources, generated questions, and the
// events emitted by the orchestration pipeline.
package domain

import "strings"

// Batch is a fixed-size ordered group of skills processed by one pipeline
// instance. Index is 1-based for log and event readability.
type Batch struct {
	// Index is the 1-based position of this batch in the run.
	Index int

	// Skills is the ordered list of skills in this batch.
	Skills []string
}

// SkillSource holds the discovered supporting material for a single skill.
// Content may be empty when discovery found nothing usable; HasContent
// distinguishes that case from whitespace-only noise.
type SkillSource struct {
	// Skill is the skill this source belongs to.
	Skill string `json:"skill"`

	// Content is the discovered text supporting the skill.
	Content string `json:"content"`
}

// HasContent reports whether the source carries usable discovered text.
func (s SkillSource) HasContent() bool {
	return strings.TrimSpace(s.Content) != ""
}

// SkillQuestions is the generated result for one skill.
type SkillQuestions struct {
	// Skill is the skill the questions were generated for. The generator's
	// returned name is treated as canonical (it may reformat hyphens or
	// quoting), so this can differ textually from the requested skill.
	Skill string `json:"skill"`

	// Questions is the list of generated interview questions.
	Questions []string `json:"questions"`
}

// ExtractedSkills is the parsed output of the skill extraction stage.
type ExtractedSkills struct {
	Skills []string `json:"skills"`
}

// QuestionSet is the parsed output of one question generation call, covering
// one or more skills.
type QuestionSet struct {
	AllQuestions []SkillQuestions `json:"all_questions"`
}

// BatchOutcome summarizes how a batch pipeline ended.
type BatchOutcome string

const (
	// BatchSucceeded means every skill in the batch produced questions.
	BatchSucceeded BatchOutcome = "success"

	// BatchPartial means some but not all skills produced questions.
	BatchPartial BatchOutcome = "partial"

	// BatchFailed means no skill in the batch produced questions.
	BatchFailed BatchOutcome = "failure"
)
