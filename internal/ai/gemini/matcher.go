package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"superconnector/internal/ai"
	"superconnector/internal/logger"
	"superconnector/internal/store"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	maxResumeRunes      = 1000
)

// candidateMarker matches positional references like "Candidate 3" in the
// model's response.
var candidateMarker = regexp.MustCompile(`Candidate\s+(\d+)`)

// noMatchIndicators are the phrases from the prompt.md response format that
// mean the model declined to pick anyone.
var noMatchIndicators = []string{
	"no good match found",
	"no suitable candidates",
	"none of the candidates have any",
}

type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewMatcher(generator contentGenerator, log *zap.Logger, maxLogLength int) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Match asks Gemini to pick the best candidate for the request. Candidate
// ordering is significant: positional references in the response resolve
// against the list exactly as passed in.
func (m *Matcher) Match(ctx context.Context, lookingFor string, candidates *store.Users) (*ai.Match, error) {
	if candidates.Len() == 0 {
		return nil, fmt.Errorf("no candidates provided")
	}

	if candidates.Len() == 1 {
		only := candidates.First()
		return &ai.Match{
			User:        only,
			Explanation: fmt.Sprintf("%s is the best match available in our network.", only.Name),
		}, nil
	}

	prompt := buildPrompt(lookingFor, candidates)

	m.logger.Debug("gemini generate content request",
		zap.Int("candidates", candidates.Len()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, m.maxLogLen)),
	)

	return interpret(raw, candidates), nil
}

func buildPrompt(lookingFor string, candidates *store.Users) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I need to find the best person to connect with someone who is looking for: %s\n\n", lookingFor)
	b.WriteString("Here are the potential candidates based on their resumes:\n\n")

	for i, candidate := range candidates.Items {
		resume := candidate.ResumeText
		if strings.TrimSpace(resume) == "" {
			resume = "No resume provided"
		}
		fmt.Fprintf(&b, "Candidate %d:\nName: %s\nResume: %s\n\n", i+1, candidate.Name, logger.TruncateForLog(resume, maxResumeRunes))
	}

	b.WriteString("Based on the request and the candidates' resumes, which candidate would be the best match?\n")
	b.WriteString("Remember to be generous in your matching - look for ANY relevant skills or experience that might be valuable.\n")
	b.WriteString("Only indicate \"No good match found\" in extreme cases where there is absolutely no relevant connection possible.\n")

	return b.String()
}

// interpret resolves the model's free-text response to a concrete candidate.
// A nil Match.User means the model explicitly declined to pick anyone.
func interpret(raw string, candidates *store.Users) *ai.Match {
	lower := strings.ToLower(raw)
	for _, indicator := range noMatchIndicators {
		if strings.Contains(lower, indicator) {
			return &ai.Match{Explanation: raw, Raw: raw}
		}
	}

	// First in-range positional marker wins. Out-of-range markers are
	// skipped rather than treated as a prefix of a smaller index.
	for _, marker := range candidateMarker.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(marker[1])
		if err != nil || n < 1 || n > candidates.Len() {
			continue
		}
		return &ai.Match{User: candidates.Items[n-1], Explanation: raw, Raw: raw}
	}

	if fields := strings.Fields(raw); len(fields) > 0 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n >= 1 && n <= candidates.Len() {
			winner := candidates.Items[n-1]
			return &ai.Match{
				User:        winner,
				Explanation: fmt.Sprintf("%s is the best match based on their professional experience and skills.", winner.Name),
				Raw:         raw,
			}
		}
	}

	first := candidates.First()
	return &ai.Match{
		User:        first,
		Explanation: fmt.Sprintf("%s has experience that could be relevant to your needs. While not a perfect match, they might offer valuable insights or connections.", first.Name),
		Raw:         raw,
	}
}
