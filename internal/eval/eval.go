// Package eval scores a generated answer against its retrieved context with
// a judge model. Evaluation is best-effort: a failed or unparseable judge
// call never fails the query that produced the answer.
package eval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Hughclaw18/Enterprise-Rag/internal/provider"
)

// Scores are the four independent retrieval-quality metrics, each in [0,1].
type Scores struct {
	Faithfulness     float64 `json:"faithfulness"`
	AnswerRelevancy  float64 `json:"answer_relevancy"`
	ContextPrecision float64 `json:"context_precision"`
	ContextRecall    float64 `json:"context_recall"`
}

// Evaluator runs the judge prompts through a Generator.
type Evaluator struct {
	gen provider.Generator
}

func New(gen provider.Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

const judgePreamble = "You are a strict evaluator of retrieval-augmented answers. " +
	"Reply with a single number between 0.0 and 1.0 and nothing else.\n\n"

var metricPrompts = []struct {
	name     string
	question string
	assign   func(*Scores, float64)
}{
	{
		"faithfulness",
		"Is every claim in the Answer supported by the Context? 1.0 means fully supported, 0.0 means unsupported.",
		func(s *Scores, v float64) { s.Faithfulness = v },
	},
	{
		"answer relevancy",
		"Does the Answer address the Question? 1.0 means directly and completely, 0.0 means not at all.",
		func(s *Scores, v float64) { s.AnswerRelevancy = v },
	},
	{
		"context precision",
		"What fraction of the Context excerpts are relevant to the Question?",
		func(s *Scores, v float64) { s.ContextPrecision = v },
	},
	{
		"context recall",
		"Does the Context contain the information needed to produce the Answer? 1.0 means fully covered, 0.0 means missing.",
		func(s *Scores, v float64) { s.ContextRecall = v },
	},
}

var numberRe = regexp.MustCompile(`[01](?:\.\d+)?`)

// Evaluate scores the answer along all four metrics. It returns an error if
// any judge call fails; callers treat that as advisory.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer string, contexts []string) (Scores, error) {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[Excerpt %d] %s\n", i+1, strings.TrimSpace(c))
	}
	fmt.Fprintf(&b, "\nQuestion:\n%s\n\nAnswer:\n%s\n\n", question, answer)
	body := b.String()

	var scores Scores
	for _, m := range metricPrompts {
		reply, err := e.gen.Complete(ctx, judgePreamble+body+m.question)
		if err != nil {
			return Scores{}, fmt.Errorf("judge call for %s failed: %w", m.name, err)
		}
		v, err := parseScore(reply)
		if err != nil {
			return Scores{}, fmt.Errorf("judge reply for %s: %w", m.name, err)
		}
		m.assign(&scores, v)
	}
	return scores, nil
}

func parseScore(reply string) (float64, error) {
	m := numberRe.FindString(reply)
	if m == "" {
		return 0, fmt.Errorf("no score in %q", strings.TrimSpace(reply))
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, nil
}
