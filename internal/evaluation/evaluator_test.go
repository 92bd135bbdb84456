package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicScoresBounded(t *testing.T) {
	evaluator := NewEvaluator(false, nil)

	result := evaluator.Evaluate(context.Background(),
		"Bagaimana cara pembayaran?",
		"Pembayaran bisa dilakukan melalui transfer bank atau kartu kredit.",
		"Q: Bagaimana cara pembayaran?\nA: Transfer bank atau kartu kredit.",
	)

	assert.Equal(t, MethodHeuristic, result.Method)
	for metric, score := range result.Scores {
		assert.GreaterOrEqual(t, score, 0.0, metric)
		assert.LessOrEqual(t, score, 5.0, metric)
	}
	for _, metric := range []string{"relevance", "completeness", "clarity", "accuracy", "overall"} {
		_, ok := result.Scores[metric]
		assert.True(t, ok, "missing score for %s", metric)
	}
}

func TestHeuristicWeightedOverall(t *testing.T) {
	evaluator := NewEvaluator(false, nil)

	// Full keyword overlap with the query, every non-query term grounded in
	// the context, 11 words in one sentence.
	result := evaluator.Evaluate(context.Background(),
		"payment methods supported",
		"Supported payment methods include bank transfer and credit card options today.",
		"Bank transfer and credit card options include payment today.",
	)

	assert.InDelta(t, 5.0, result.Scores["relevance"], 1e-9)
	assert.InDelta(t, 3.0, result.Scores["completeness"], 1e-9)
	assert.InDelta(t, 5.0, result.Scores["clarity"], 1e-9)
	assert.InDelta(t, 5.0, result.Scores["accuracy"], 1e-9)
	assert.InDelta(t, 4.6, result.Scores["overall"], 1e-9)
}

func TestHeuristicCompletenessThresholds(t *testing.T) {
	evaluator := NewEvaluator(false, nil)

	short := evaluator.Evaluate(context.Background(), "query terms", "Too short.", "")
	assert.InDelta(t, 1.0, short.Scores["completeness"], 1e-9)
	assert.Contains(t, short.Reasons["completeness"][0], "too short")

	medium := evaluator.Evaluate(context.Background(), "query terms",
		strings.Repeat("word ", 15)+".", "")
	assert.InDelta(t, 3.0, medium.Scores["completeness"], 1e-9)

	long := evaluator.Evaluate(context.Background(), "query terms",
		strings.Repeat("word ", 35)+".", "")
	assert.InDelta(t, 5.0, long.Scores["completeness"], 1e-9)
}

func TestHeuristicClarityThresholds(t *testing.T) {
	evaluator := NewEvaluator(false, nil)

	// No period means one long run-on sentence.
	rambling := evaluator.Evaluate(context.Background(), "query",
		strings.TrimSpace(strings.Repeat("word ", 28)), "")
	assert.InDelta(t, 2.0, rambling.Scores["clarity"], 1e-9)

	moderate := evaluator.Evaluate(context.Background(), "query",
		strings.TrimSpace(strings.Repeat("word ", 20)), "")
	assert.InDelta(t, 3.5, moderate.Scores["clarity"], 1e-9)

	concise := evaluator.Evaluate(context.Background(), "query",
		"Short sentence here. Another short one.", "")
	assert.InDelta(t, 5.0, concise.Scores["clarity"], 1e-9)
}

func TestHeuristicAccuracyUngrounded(t *testing.T) {
	evaluator := NewEvaluator(false, nil)

	result := evaluator.Evaluate(context.Background(),
		"office location",
		"The office sells unicorns and dragons wholesale nationwide.",
		"Q: Where is the office?\nA: Jakarta.",
	)

	assert.Less(t, result.Scores["accuracy"], 2.5)
	assert.Contains(t, result.Reasons["accuracy"][0], "not in the context")
}

type fakeGrader struct {
	raw string
	err error
}

func (g *fakeGrader) Grade(ctx context.Context, query, response, contextText string) (string, error) {
	return g.raw, g.err
}

func TestModelEvaluation(t *testing.T) {
	raw := strings.Join([]string{
		"RELEVANCE: [4]",
		"Reason: Directly addresses the question",
		"COMPLETENESS: [3.5]",
		"Reason: Missing payment details",
		"CLARITY: 5",
		"ACCURACY: [4.0]",
		"Reason: Grounded in the FAQ",
		"OVERALL: [4.1]",
	}, "\n")

	evaluator := NewEvaluator(true, &fakeGrader{raw: raw})
	result := evaluator.Evaluate(context.Background(), "q", "a", "c")

	assert.Equal(t, MethodModel, result.Method)
	assert.Equal(t, raw, result.RawEvaluation)
	assert.Empty(t, result.Error)
	assert.InDelta(t, 4.0, result.Scores["relevance"], 1e-9)
	assert.InDelta(t, 3.5, result.Scores["completeness"], 1e-9)
	assert.InDelta(t, 5.0, result.Scores["clarity"], 1e-9)
	assert.InDelta(t, 4.1, result.Scores["overall"], 1e-9)
	assert.Equal(t, []string{"Directly addresses the question"}, result.Reasons["relevance"])
	assert.Equal(t, []string{"Missing payment details"}, result.Reasons["completeness"])
}

func TestModelEvaluationFallsBackOnError(t *testing.T) {
	evaluator := NewEvaluator(true, &fakeGrader{err: errors.New("model unavailable")})

	result := evaluator.Evaluate(context.Background(), "payment methods", "Payment is by transfer.", "Payment by transfer.")

	assert.Equal(t, MethodHeuristic, result.Method)
	assert.Equal(t, "model unavailable", result.Error)
	assert.Contains(t, result.Scores, "overall")
}

func TestNewEvaluatorWithoutGraderUsesHeuristics(t *testing.T) {
	evaluator := NewEvaluator(true, nil)

	result := evaluator.Evaluate(context.Background(), "q", "a", "c")

	assert.Equal(t, MethodHeuristic, result.Method)
}

func TestParseEvaluationSkipsGarbage(t *testing.T) {
	scores, reasons := parseEvaluation(strings.Join([]string{
		"Here is my evaluation:",
		"RELEVANCE: [4]",
		"Reason: good match",
		"",
		"CLARITY: not a number",
		"ACCURACY: [3]",
		"some trailing commentary",
	}, "\n"))

	assert.Len(t, scores, 2)
	assert.InDelta(t, 4.0, scores["relevance"], 1e-9)
	assert.InDelta(t, 3.0, scores["accuracy"], 1e-9)
	_, hasClarity := scores["clarity"]
	assert.False(t, hasClarity, "unparseable score must leave no entry")
	assert.Equal(t, []string{"good match"}, reasons["relevance"])
}

func TestParseEvaluationReasonAttachment(t *testing.T) {
	scores, reasons := parseEvaluation(strings.Join([]string{
		"Reason: orphan reason before any metric",
		"OVERALL: [4]",
		"Reason: attached to overall is dropped",
		"RELEVANCE: [5]",
		"Reason: first",
		"Reason: second",
	}, "\n"))

	assert.InDelta(t, 4.0, scores["overall"], 1e-9)
	assert.Equal(t, []string{"first", "second"}, reasons["relevance"])
	assert.NotContains(t, reasons, "overall")
	assert.Len(t, reasons, 1)
}

func TestParseEvaluationCaseInsensitive(t *testing.T) {
	scores, _ := parseEvaluation("relevance: 2.5\nOverall: [3]")

	assert.InDelta(t, 2.5, scores["relevance"], 1e-9)
	assert.InDelta(t, 3.0, scores["overall"], 1e-9)
}

func TestNewErrorEvaluation(t *testing.T) {
	result := NewErrorEvaluation("retrieval failed")

	assert.Equal(t, MethodError, result.Method)
	assert.Equal(t, 0.0, result.Scores["overall"])
	assert.Equal(t, []string{"retrieval failed"}, result.Reasons["error"])
}

func TestKeywordSet(t *testing.T) {
	keywords := keywordSet("Apa YANG dimaksud dengan Nawatech, dan the price?")

	assert.Contains(t, keywords, "apa")
	assert.Contains(t, keywords, "dimaksud")
	assert.Contains(t, keywords, "nawatech")
	assert.Contains(t, keywords, "price")
	assert.NotContains(t, keywords, "yang", "stopwords are dropped")
	assert.NotContains(t, keywords, "the")
	assert.NotContains(t, keywords, "dan")
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 5.0, clampScore(7.2))
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 3.3, clampScore(3.3))
}
