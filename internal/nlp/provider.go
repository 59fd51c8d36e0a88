// Package nlp provides the language tooling behind entity extraction and
// keyword analysis. The full spaCy-class model the original design assumed is
// not available as a Go library, so the package ships a heuristic provider:
// rule-based sentence splitting, a suffix-stripping lemmatizer, a stopword
// list and pattern-based named-entity recognition. The ports.NLPProvider
// interface is the seam for swapping in a model-backed implementation.
package nlp

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/citygraph/newsminer/internal/core/ports"
)

// New selects the provider implementation once at construction time. A
// non-empty model name that cannot be loaded degrades to the heuristic
// provider with a warning; it never fails the caller.
func New(modelName string, logger *zerolog.Logger) ports.NLPProvider {
	if modelName != "" {
		logger.Warn().Str("model", modelName).Msg("no model-backed provider available, using heuristic tokenizer")
	}

	return &heuristicProvider{}
}

type heuristicProvider struct{}

func (p *heuristicProvider) HasModel() bool { return false }

// Sentences splits text on terminal punctuation followed by whitespace and
// an upper-case or digit start. Abbreviation handling is deliberately rough.
func (p *heuristicProvider) Sentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}

		// Consume runs of terminal punctuation ("?!", "...").
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}

		if end+1 >= len(runes) || isSentenceBoundary(runes, end+1) {
			sentence := strings.TrimSpace(string(runes[start : end+1]))
			if sentence != "" {
				sentences = append(sentences, sentence)
			}

			start = end + 1
		}

		i = end
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSentenceBoundary(runes []rune, next int) bool {
	if runes[next] != ' ' && runes[next] != '\n' && runes[next] != '\t' {
		return false
	}

	for i := next; i < len(runes); i++ {
		switch {
		case runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' || runes[i] == '"' || runes[i] == '\'':
			continue
		case runes[i] >= 'A' && runes[i] <= 'Z', runes[i] >= '0' && runes[i] <= '9':
			return true
		default:
			return false
		}
	}

	return false
}

// Tokens splits text into lower-case word tokens.
func (p *heuristicProvider) Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := make([]string, 0, len(fields))

	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r > 127
}

// Lemma reduces an English token to a crude base form by stripping common
// inflectional suffixes. Irregular forms are handled by a small exception
// table; everything else falls through unchanged.
func (p *heuristicProvider) Lemma(token string) string {
	token = strings.ToLower(token)

	if lemma, ok := irregularLemmas[token]; ok {
		return lemma
	}

	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"), strings.HasSuffix(token, "ches"), strings.HasSuffix(token, "shes"), strings.HasSuffix(token, "xes"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "ing") && len(token) > 5:
		return undouble(token[:len(token)-3])
	case strings.HasSuffix(token, "ied") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "ed") && len(token) > 4:
		return undouble(token[:len(token)-2])
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && len(token) > 3:
		return token[:len(token)-1]
	}

	return token
}

// undouble collapses a doubled final consonant left by suffix stripping
// (running -> runn -> run).
func undouble(stem string) string {
	n := len(stem)
	if n >= 2 && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) && stem[n-1] != 'l' && stem[n-1] != 's' {
		return stem[:n-1]
	}

	return stem
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}

	return false
}

var irregularLemmas = map[string]string{
	"was": "be", "were": "be", "is": "be", "are": "be", "been": "be", "am": "be",
	"has": "have", "had": "have", "having": "have",
	"said": "say", "says": "say",
	"went": "go", "gone": "go", "goes": "go",
	"did": "do", "does": "do", "done": "do",
	"made": "make", "making": "make",
	"better": "good", "best": "good",
	"worse": "bad", "worst": "bad",
	"won": "win", "winning": "win",
	"lost": "lose", "losing": "lose",
	"led": "lead", "leading": "lead",
	"met": "meet", "meeting": "meet",
	"men": "man", "women": "woman", "people": "person", "children": "child",
}

func (p *heuristicProvider) IsStopword(token string) bool {
	_, ok := stopwords[strings.ToLower(token)]
	return ok
}
