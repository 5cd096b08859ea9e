// Package scoring rates generated responses on a 1-10 quality scale by
// asking the model to judge its own output.
package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/domain"
)

const (
	// defaultQuality is used whenever the judge call fails or its reply
	// contains no parsable number.
	defaultQuality = 5.0
	minQuality     = 1.0
	maxQuality     = 10.0

	judgeMaxTokens   = 10
	judgeTemperature = 0.0
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Scorer judges response quality with a model call.
type Scorer struct {
	invoker domain.Invoker
	logger  *zap.Logger
}

// NewScorer creates a quality scorer backed by the given invoker.
func NewScorer(invoker domain.Invoker, logger *zap.Logger) *Scorer {
	return &Scorer{invoker: invoker, logger: logger}
}

// Score rates how well response answers prompt, returning a value in
// [1,10]. Scoring never fails: judge errors and unparsable replies fall
// back to the neutral default.
func (s *Scorer) Score(ctx context.Context, prompt, response string) float64 {
	judgePrompt := fmt.Sprintf(
		"Rate the quality of the following answer to the question on a scale of 1 to 10. "+
			"Reply with a single number only.\n\nQuestion: %s\n\nAnswer: %s",
		prompt, response,
	)

	gen, err := s.invoker.Generate(ctx, judgePrompt, domain.GenerationConfig{
		MaxTokens:   judgeMaxTokens,
		Temperature: judgeTemperature,
	})
	if err != nil {
		s.logger.Warn("Quality judge call failed", zap.Error(err))
		return defaultQuality
	}

	match := numberPattern.FindString(gen.Text)
	if match == "" {
		s.logger.Warn("Quality judge returned no number", zap.String("reply", gen.Text))
		return defaultQuality
	}

	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return defaultQuality
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < minQuality {
		return minQuality
	}
	if v > maxQuality {
		return maxQuality
	}
	return v
}
