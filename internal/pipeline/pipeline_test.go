package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// Shared test doubles for the pipeline package.

type fakeDiscoverer struct {
	fn func(ctx context.Context, skills []string) ([]domain.SkillSource, error)
}

func (f *fakeDiscoverer) Discover(ctx context.Context, skills []string) ([]domain.SkillSource, error) {
	return f.fn(ctx, skills)
}

// discoverAll returns a discoverer that finds the given content for every
// requested skill.
func discoverAll(content string) *fakeDiscoverer {
	return &fakeDiscoverer{fn: func(_ context.Context, skills []string) ([]domain.SkillSource, error) {
		sources := make([]domain.SkillSource, 0, len(skills))
		for _, s := range skills {
			sources = append(sources, domain.SkillSource{Skill: s, Content: content})
		}
		return sources, nil
	}}
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(ctx context.Context, skills []string, contextStr string) (*domain.QuestionSet, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, skills []string, contextStr string) (*domain.QuestionSet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), skills...))
	f.mu.Unlock()
	return f.fn(ctx, skills, contextStr)
}

// Calls returns a snapshot of the skill groups passed to Generate.
func (f *fakeGenerator) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// generateAll returns a generator that yields one questions entry per
// requested skill.
func generateAll() *fakeGenerator {
	return &fakeGenerator{fn: func(_ context.Context, skills []string, _ string) (*domain.QuestionSet, error) {
		qs := &domain.QuestionSet{}
		for _, s := range skills {
			qs.AllQuestions = append(qs.AllQuestions, domain.SkillQuestions{
				Skill:     s,
				Questions: []string{fmt.Sprintf("What is %s?", s)},
			})
		}
		return qs, nil
	}}
}

// drainEvents reads every buffered event off the channel.
func drainEvents(events chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case e := <-events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// eventsByKind groups events by kind.
func eventsByKind(events []domain.Event) map[domain.EventKind][]domain.Event {
	byKind := make(map[domain.EventKind][]domain.Event)
	for _, e := range events {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}
	return byKind
}
