package nlp

import (
	"strings"
	"unicode"

	"github.com/citygraph/newsminer/internal/core/domain"
	"github.com/citygraph/newsminer/internal/core/ports"
)

// Recognition confidences by rule strength.
const (
	confHonorific = 0.9
	confOrgSuffix = 0.85
	confGazetteer = 0.8
	confEventWord = 0.7
	confProperRun = 0.6
	confWeakerRun = 0.5
)

var honorifics = map[string]struct{}{
	"president": {}, "senator": {}, "sen": {}, "representative": {}, "rep": {},
	"governor": {}, "gov": {}, "mayor": {}, "judge": {}, "justice": {},
	"secretary": {}, "chief": {}, "officer": {}, "sheriff": {}, "chancellor": {},
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "professor": {},
	"councilman": {}, "councilwoman": {}, "councilmember": {}, "commissioner": {},
	"superintendent": {},
}

var orgSuffixes = map[string]struct{}{
	"inc": {}, "corp": {}, "co": {}, "llc": {}, "ltd": {}, "company": {},
	"council": {}, "committee": {}, "commission": {}, "department": {},
	"university": {}, "college": {}, "school": {}, "district": {},
	"association": {}, "agency": {}, "authority": {}, "bureau": {},
	"party": {}, "bank": {}, "group": {}, "board": {}, "union": {},
	"times": {}, "post": {}, "herald": {}, "gazette": {}, "tribune": {},
	"hospital": {}, "church": {}, "foundation": {}, "institute": {},
}

var gpeWords = map[string]struct{}{
	"city": {}, "county": {}, "township": {}, "village": {}, "state": {},
	"springs": {}, "heights": {}, "beach": {}, "falls": {}, "valley": {},
	"america": {}, "washington": {}, "california": {}, "texas": {}, "florida": {},
	"oregon": {}, "ohio": {}, "virginia": {}, "georgia": {}, "colorado": {},
	"chicago": {}, "boston": {}, "portland": {}, "seattle": {}, "denver": {},
	"austin": {}, "atlanta": {}, "detroit": {}, "cleveland": {}, "baltimore": {},
}

var eventWords = map[string]struct{}{
	"festival": {}, "parade": {}, "championship": {}, "election": {},
	"summit": {}, "fair": {}, "marathon": {}, "tournament": {}, "convention": {},
	"olympics": {}, "derby": {}, "gala": {},
}

// runConnectors may appear inside a capitalized run without breaking it
// ("Department of Transportation").
var runConnectors = map[string]struct{}{
	"of": {}, "for": {}, "and": {}, "the": {}, "&": {},
}

// Entities performs pattern-based named-entity recognition: maximal runs of
// capitalized tokens are collected per sentence and classified by cue words.
// Single capitalized tokens that merely open a sentence are discarded.
func (p *heuristicProvider) Entities(text string) []ports.ExtractedEntity {
	var entities []ports.ExtractedEntity

	for _, sentence := range p.Sentences(text) {
		entities = append(entities, p.sentenceEntities(sentence)...)
	}

	return entities
}

func (p *heuristicProvider) sentenceEntities(sentence string) []ports.ExtractedEntity {
	words := strings.Fields(sentence)

	var (
		entities []ports.ExtractedEntity
		run      []string
		runStart int
	)

	flush := func() {
		if len(run) > 0 {
			if entity, ok := classifyRun(run, runStart == 0); ok {
				entities = append(entities, entity)
			}

			run = nil
		}
	}

	for i, word := range words {
		token := strings.Trim(word, ".,;:!?\"'()[]")
		if token == "" {
			flush()
			continue
		}

		lower := strings.ToLower(token)

		switch {
		case isCapitalized(token):
			if len(run) == 0 {
				runStart = i
			}

			run = append(run, token)
		case len(run) > 0 && isConnector(lower) && i+1 < len(words) && isCapitalized(strings.Trim(words[i+1], ".,;:!?\"'()[]")):
			run = append(run, token)
		default:
			flush()
		}

		// A token ending the original word with terminal punctuation closes
		// the run even if the next word is capitalized.
		if len(run) > 0 && strings.ContainsAny(word, ".,;:!?") && !isAbbreviation(token) {
			flush()
		}
	}

	flush()

	return entities
}

func classifyRun(run []string, atSentenceStart bool) (ports.ExtractedEntity, bool) {
	// Leading honorific: strongly a person; the honorific stays in the raw
	// span and is stripped during canonical resolution.
	if _, ok := honorifics[strings.ToLower(strings.TrimSuffix(run[0], "."))]; ok && len(run) > 1 {
		return ports.ExtractedEntity{
			Text:       strings.Join(run, " "),
			Label:      domain.EntityTypePerson,
			Confidence: confHonorific,
		}, true
	}

	// A lone sentence-opening capitalized word is usually just a sentence
	// start, not an entity.
	if atSentenceStart && len(run) == 1 {
		return ports.ExtractedEntity{}, false
	}

	text := strings.Join(run, " ")
	last := strings.ToLower(strings.TrimSuffix(run[len(run)-1], "."))

	if _, ok := orgSuffixes[last]; ok {
		return ports.ExtractedEntity{Text: text, Label: domain.EntityTypeOrg, Confidence: confOrgSuffix}, true
	}

	if _, ok := eventWords[last]; ok {
		return ports.ExtractedEntity{Text: text, Label: domain.EntityTypeEvent, Confidence: confEventWord}, true
	}

	if _, ok := gpeWords[last]; ok {
		return ports.ExtractedEntity{Text: text, Label: domain.EntityTypeGPE, Confidence: confGazetteer}, true
	}

	if len(run) == 1 {
		lower := strings.ToLower(run[0])
		if _, ok := gpeWords[lower]; ok {
			return ports.ExtractedEntity{Text: text, Label: domain.EntityTypeGPE, Confidence: confGazetteer}, true
		}

		// Single mid-sentence capitalized tokens are too ambiguous to keep.
		return ports.ExtractedEntity{}, false
	}

	if len(run) <= 3 && allAlphabetic(run) {
		return ports.ExtractedEntity{Text: text, Label: domain.EntityTypePerson, Confidence: confProperRun}, true
	}

	return ports.ExtractedEntity{Text: text, Label: domain.EntityTypeOrg, Confidence: confWeakerRun}, true
}

// NounPhrases returns stopword-free runs of tokens, longest first within
// each run, used by the headline keyword extractor.
func (p *heuristicProvider) NounPhrases(text string) []string {
	const maxPhraseLen = 3

	var (
		phrases []string
		run     []string
	)

	flush := func() {
		if len(run) == 0 {
			return
		}

		if len(run) > maxPhraseLen {
			run = run[len(run)-maxPhraseLen:]
		}

		phrases = append(phrases, strings.Join(run, " "))
		run = nil
	}

	for _, token := range p.Tokens(text) {
		if p.IsStopword(token) || len(token) < 3 {
			flush()
			continue
		}

		run = append(run, token)
	}

	flush()

	return phrases
}

func isCapitalized(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}

	return false
}

func isConnector(lower string) bool {
	_, ok := runConnectors[lower]
	return ok
}

// isAbbreviation reports whether a dotted token is an initial or honorific
// abbreviation rather than a sentence end ("R." in "Joe R. Biden").
func isAbbreviation(token string) bool {
	trimmed := strings.TrimSuffix(token, ".")
	if len(trimmed) == 1 && trimmed == strings.ToUpper(trimmed) {
		return true
	}

	_, ok := honorifics[strings.ToLower(trimmed)]

	return ok
}

func allAlphabetic(run []string) bool {
	for _, token := range run {
		for _, r := range strings.TrimSuffix(token, ".") {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}

	return true
}
