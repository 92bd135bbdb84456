package evaluation

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

const (
	MethodHeuristic = "heuristic"
	MethodModel     = "model"
	MethodError     = "error"
)

// Evaluation carries the quality scores for one generated answer. Scores are
// keyed by metric name and bounded to [0, 5]; with the model method, metrics
// the grader omitted simply have no entry.
type Evaluation struct {
	Scores        map[string]float64  `json:"scores"`
	Reasons       map[string][]string `json:"reasons"`
	Method        string              `json:"method"`
	RawEvaluation string              `json:"raw_evaluation,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Grader is the secondary model call used by the model-based strategy.
type Grader interface {
	Grade(ctx context.Context, query, response, contextText string) (string, error)
}

// Evaluator scores (query, answer, context) triples, either by fast keyword
// heuristics or by asking a model to grade the answer. The strategy is fixed
// at construction; the model strategy falls back to the heuristic one on any
// failure.
type Evaluator struct {
	useModel bool
	grader   Grader
}

func NewEvaluator(useModel bool, grader Grader) *Evaluator {
	if useModel && grader == nil {
		logger.Warn("Model evaluator requested without a grading client, using heuristics")
		useModel = false
	}

	if useModel {
		logger.Info("Initialized model-based response evaluator")
	}

	return &Evaluator{useModel: useModel, grader: grader}
}

func (e *Evaluator) Evaluate(ctx context.Context, query, response, contextText string) Evaluation {
	if e.useModel {
		return e.evaluateWithModel(ctx, query, response, contextText)
	}
	return e.evaluateHeuristic(query, response, contextText)
}

var weights = map[string]float64{
	"relevance":    0.3,
	"completeness": 0.2,
	"clarity":      0.2,
	"accuracy":     0.3,
}

func (e *Evaluator) evaluateHeuristic(query, response, contextText string) Evaluation {
	scores := map[string]float64{}
	reasons := map[string][]string{}

	queryTerms := keywordSet(query)
	responseTerms := keywordSet(response)

	common := 0
	for term := range queryTerms {
		if _, ok := responseTerms[term]; ok {
			common++
		}
	}

	scores["relevance"] = clampScore(5 * float64(common) / math.Max(float64(len(queryTerms)), 1))
	if scores["relevance"] < 2.5 {
		reasons["relevance"] = []string{"Response doesn't contain many key terms from the query"}
	} else {
		reasons["relevance"] = []string{"Response contains key terms from the query"}
	}

	wordCount := len(strings.Fields(response))
	switch {
	case wordCount < 10:
		scores["completeness"] = 1.0
		reasons["completeness"] = []string{"Response is too short"}
	case wordCount < 30:
		scores["completeness"] = 3.0
		reasons["completeness"] = []string{"Response is of medium length"}
	default:
		scores["completeness"] = 5.0
		reasons["completeness"] = []string{"Response has good length"}
	}

	sentences := strings.Split(response, ".")
	avgWordsPerSentence := float64(wordCount) / math.Max(float64(len(sentences)), 1)
	switch {
	case avgWordsPerSentence > 25:
		scores["clarity"] = 2.0
		reasons["clarity"] = []string{"Sentences are too long"}
	case avgWordsPerSentence > 15:
		scores["clarity"] = 3.5
		reasons["clarity"] = []string{"Sentences are of moderate length"}
	default:
		scores["clarity"] = 5.0
		reasons["clarity"] = []string{"Sentences are concise"}
	}

	contextTerms := keywordSet(contextText)
	uniqueCount := 0
	groundedCount := 0
	for term := range responseTerms {
		if _, inQuery := queryTerms[term]; inQuery {
			continue
		}
		uniqueCount++
		if _, ok := contextTerms[term]; ok {
			groundedCount++
		}
	}

	scores["accuracy"] = clampScore(5 * float64(groundedCount) / math.Max(float64(uniqueCount), 1))
	if scores["accuracy"] < 2.5 {
		reasons["accuracy"] = []string{"Response contains information not in the context"}
	} else {
		reasons["accuracy"] = []string{"Response information is present in the context"}
	}

	overall := 0.0
	for metric, weight := range weights {
		overall += scores[metric] * weight
	}
	scores["overall"] = math.Round(overall*100) / 100

	return Evaluation{
		Scores:  scores,
		Reasons: reasons,
		Method:  MethodHeuristic,
	}
}

func (e *Evaluator) evaluateWithModel(ctx context.Context, query, response, contextText string) Evaluation {
	raw, err := e.grader.Grade(ctx, query, response, contextText)
	if err != nil {
		logger.Error("Error during model-based evaluation", zap.Error(err))
		result := e.evaluateHeuristic(query, response, contextText)
		result.Error = err.Error()
		return result
	}

	scores, reasons := parseEvaluation(raw)

	return Evaluation{
		Scores:        scores,
		Reasons:       reasons,
		Method:        MethodModel,
		RawEvaluation: raw,
	}
}

// NewErrorEvaluation is the evaluation attached to a failed query.
func NewErrorEvaluation(message string) Evaluation {
	return Evaluation{
		Scores:  map[string]float64{"overall": 0.0},
		Reasons: map[string][]string{"error": {message}},
		Method:  MethodError,
	}
}

var (
	scoreLinePattern  = regexp.MustCompile(`(?i)^(relevance|completeness|clarity|accuracy|overall):\s*\[?([0-9]+(?:\.[0-9]+)?)\]?`)
	reasonLinePattern = regexp.MustCompile(`(?i)^reason:\s*(.+)`)
)

// parseEvaluation decodes the grader's line-oriented reply permissively:
// unparseable lines are skipped, a reason line attaches to the nearest
// preceding metric, and metrics with no score line have no entry.
func parseEvaluation(text string) (map[string]float64, map[string][]string) {
	scores := map[string]float64{}
	reasons := map[string][]string{}

	lastMetric := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := scoreLinePattern.FindStringSubmatch(line); m != nil {
			metric := strings.ToLower(m[1])
			if value, err := strconv.ParseFloat(m[2], 64); err == nil {
				scores[metric] = value
				lastMetric = metric
			}
			continue
		}

		if m := reasonLinePattern.FindStringSubmatch(line); m != nil {
			if lastMetric != "" && lastMetric != "overall" {
				reasons[lastMetric] = append(reasons[lastMetric], strings.TrimSpace(m[1]))
			}
		}
	}

	return scores, reasons
}

// Stopwords for keyword extraction, covering Indonesian and English.
var stopwords = map[string]struct{}{
	"yang": {}, "dan": {}, "di": {}, "ke": {}, "dari": {}, "dengan": {},
	"untuk": {}, "pada": {}, "adalah": {}, "ini": {}, "itu": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"about": {}, "against": {}, "between": {}, "into": {}, "through": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "of": {}, "from": {},
}

var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

func keywordSet(text string) map[string]struct{} {
	text = strings.ToLower(text)
	text = punctuationPattern.ReplaceAllString(text, "")

	keywords := map[string]struct{}{}
	for _, word := range strings.Fields(text) {
		if _, stop := stopwords[word]; stop {
			continue
		}
		if len([]rune(word)) <= 2 {
			continue
		}
		keywords[word] = struct{}{}
	}

	return keywords
}

func clampScore(score float64) float64 {
	if score > 5 {
		return 5
	}
	if score < 0 {
		return 0
	}
	return score
}
