package entity

import (
	"strings"

	"github.com/citygraph/newsminer/internal/core/ports"
)

// DefaultContextWindow is the number of sentences taken on each side of the
// first sentence containing the entity.
const DefaultContextWindow = 2

// FramingNeutral is reported when no framing lexicon word appears.
const FramingNeutral = "neutral"

// SentimentResult is the bag-of-words sentiment count for a text span.
type SentimentResult struct {
	Score         float64
	PositiveCount int
	NegativeCount int
	TotalCount    int
}

// FramingResult is the dominant framing category with per-category detail.
type FramingResult struct {
	Category string
	// Scores holds each category's fraction of all framing-word hits;
	// zero when no framing words matched.
	Scores     map[string]float64
	Counts     map[string]int
	TotalCount int
}

// ContextResult combines sentiment, framing and size stats for a context
// window.
type ContextResult struct {
	Sentiment SentimentResult
	Framing   FramingResult
	Length    int
	WordCount int
}

// ContextAnalyzer scores text spans against fixed sentiment and framing
// lexicons. It is deliberately a plain lemma counter: no negation handling,
// no weighting.
type ContextAnalyzer struct {
	nlp      ports.NLPProvider
	positive map[string]struct{}
	negative map[string]struct{}
	framing  []framingSet
}

type framingSet struct {
	name  string
	words map[string]struct{}
}

// NewContextAnalyzer builds the analyzer with the package lexicons.
func NewContextAnalyzer(nlp ports.NLPProvider) *ContextAnalyzer {
	framing := make([]framingSet, len(framingCategories))
	for i, cat := range framingCategories {
		framing[i] = framingSet{name: cat.name, words: toSet(cat.words)}
	}

	return &ContextAnalyzer{
		nlp:      nlp,
		positive: toSet(positiveLexicon),
		negative: toSet(negativeLexicon),
		framing:  framing,
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}

// AnalyzeSentiment counts lemmatized tokens against the positive and
// negative lexicons. Score is (pos-neg)/(pos+neg); 0.0 when nothing matched.
func (c *ContextAnalyzer) AnalyzeSentiment(text string) SentimentResult {
	var result SentimentResult

	for _, token := range c.nlp.Tokens(text) {
		lemma := c.nlp.Lemma(token)

		if _, ok := c.positive[lemma]; ok {
			result.PositiveCount++
		}

		if _, ok := c.negative[lemma]; ok {
			result.NegativeCount++
		}
	}

	result.TotalCount = result.PositiveCount + result.NegativeCount
	if result.TotalCount > 0 {
		result.Score = float64(result.PositiveCount-result.NegativeCount) / float64(result.TotalCount)
	}

	return result
}

// AnalyzeFraming counts lemmatized tokens against the five framing category
// lists. The dominant category is the argmax count; ties resolve to the
// earliest declared category, and zero hits yield "neutral".
func (c *ContextAnalyzer) AnalyzeFraming(text string) FramingResult {
	result := FramingResult{
		Category: FramingNeutral,
		Scores:   make(map[string]float64, len(c.framing)),
		Counts:   make(map[string]int, len(c.framing)),
	}

	for _, cat := range c.framing {
		result.Counts[cat.name] = 0
	}

	for _, token := range c.nlp.Tokens(text) {
		lemma := c.nlp.Lemma(token)

		for _, cat := range c.framing {
			if _, ok := cat.words[lemma]; ok {
				result.Counts[cat.name]++
				result.TotalCount++
			}
		}
	}

	best := 0

	for _, cat := range c.framing {
		count := result.Counts[cat.name]
		if count > best {
			best = count
			result.Category = cat.name
		}

		if result.TotalCount > 0 {
			result.Scores[cat.name] = float64(count) / float64(result.TotalCount)
		} else {
			result.Scores[cat.name] = 0
		}
	}

	return result
}

// ExtractContext returns the window of sentences around the first sentence
// containing entityText (case-insensitive substring), clamped to the
// document bounds. Returns "" when no sentence contains the entity.
func (c *ContextAnalyzer) ExtractContext(fullText, entityText string, window int) string {
	if window < 0 {
		window = DefaultContextWindow
	}

	sentences := c.nlp.Sentences(fullText)
	needle := strings.ToLower(entityText)

	match := -1

	for i, sentence := range sentences {
		if strings.Contains(strings.ToLower(sentence), needle) {
			match = i
			break
		}
	}

	if match < 0 {
		return ""
	}

	lo := match - window
	if lo < 0 {
		lo = 0
	}

	hi := match + window + 1
	if hi > len(sentences) {
		hi = len(sentences)
	}

	return strings.Join(sentences[lo:hi], " ")
}

// AnalyzeContext composes sentiment and framing analysis with basic size
// stats for a context window.
func (c *ContextAnalyzer) AnalyzeContext(text string) ContextResult {
	return ContextResult{
		Sentiment: c.AnalyzeSentiment(text),
		Framing:   c.AnalyzeFraming(text),
		Length:    len(text),
		WordCount: len(c.nlp.Tokens(text)),
	}
}
