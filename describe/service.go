// Package describe turns search-result titles into a short product
// description, and merges user instructions into an existing one.
package describe

import (
	"context"
	"fmt"

	"github.com/seeclickbuy/backend/logger"
)

// Generator is a single-shot generative-text call.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// maxSummaryTitles caps how many titles feed one summary.
const maxSummaryTitles = 5

type Service struct {
	gen Generator
	log *logger.Logger
}

func NewService(gen Generator, log *logger.Logger) *Service {
	return &Service{gen: gen, log: log.With("service", "Describe")}
}

// Summarize condenses up to five item titles into one short description.
// A provider failure is reported as an error; callers treat it as "no
// description", not as a reason to abort.
func (s *Service) Summarize(ctx context.Context, titles []string) (string, error) {
	if len(titles) == 0 {
		return "", fmt.Errorf("no titles to summarize")
	}
	if len(titles) > maxSummaryTitles {
		titles = titles[:maxSummaryTitles]
	}
	system, user := summarizePrompt(titles)
	out, err := s.gen.Generate(ctx, system, user)
	if err != nil {
		s.log.Warn("summarize failed", "error", err)
		return "", err
	}
	return out, nil
}

// Edit merges a user instruction into an existing caption. Same failure
// contract as Summarize.
func (s *Service) Edit(ctx context.Context, original, instruction string) (string, error) {
	system, user := editPrompt(original, instruction)
	out, err := s.gen.Generate(ctx, system, user)
	if err != nil {
		s.log.Warn("edit failed", "error", err)
		return "", err
	}
	return out, nil
}
