package entity

// Sentiment and framing lexicons. Entries are lemmas; tokens are lemmatized
// before lookup. The sentiment law is a plain bag-of-words count with no
// negation handling or weighting.

var positiveLexicon = []string{
	"good", "great", "excellent", "outstanding", "positive", "success",
	"successful", "win", "achievement", "achieve", "improve", "improvement",
	"growth", "grow", "benefit", "beneficial", "progress", "strong",
	"strength", "support", "celebrate", "celebration", "praise", "honor",
	"award", "proud", "hope", "hopeful", "promising", "thrive", "prosper",
	"gain", "boost", "advance", "help", "helpful", "effective", "innovative",
	"safe", "safety", "recover", "recovery", "rise", "record", "top",
	"approve", "approval", "happy", "welcome", "generous", "donate",
}

var negativeLexicon = []string{
	"bad", "poor", "terrible", "awful", "negative", "failure", "fail",
	"lose", "loss", "decline", "crisis", "problem", "concern", "worry",
	"fear", "threat", "danger", "dangerous", "harm", "harmful", "damage",
	"crime", "criminal", "violence", "violent", "attack", "scandal",
	"corrupt", "corruption", "fraud", "weak", "weakness", "struggle",
	"suffer", "death", "dead", "kill", "injury", "injure", "accident",
	"crash", "fire", "flood", "cut", "shortage", "deficit", "debt",
	"lawsuit", "arrest", "charge", "guilty", "protest", "oppose", "reject",
}

// Framing categories in declaration order; argmax ties resolve to the
// earliest category.
var framingCategories = []struct {
	name  string
	words []string
}{
	{
		name: "leadership",
		words: []string{
			"lead", "leader", "leadership", "direct", "director", "manage",
			"decision", "announce", "launch", "initiative", "plan", "propose",
			"strategy", "vision", "head", "guide", "chair", "oversee",
			"appoint", "command",
		},
	},
	{
		name: "victim",
		words: []string{
			"victim", "suffer", "injure", "injury", "harm", "hurt", "target",
			"affect", "displace", "lose", "loss", "grieve", "mourn", "attack",
			"abuse", "exploit", "struggle", "endure", "trauma", "tragedy",
		},
	},
	{
		name: "controversy",
		words: []string{
			"controversy", "controversial", "scandal", "dispute", "conflict",
			"criticize", "criticism", "accuse", "accusation", "allege",
			"allegation", "investigate", "investigation", "lawsuit", "probe",
			"corruption", "fraud", "deny", "denial", "resign",
		},
	},
	{
		name: "expert",
		words: []string{
			"expert", "research", "researcher", "study", "professor",
			"analyst", "analysis", "scientist", "specialist", "authority",
			"scholar", "report", "finding", "data", "evidence", "estimate",
			"predict", "forecast", "explain",
		},
	},
	{
		name: "achievement",
		words: []string{
			"achieve", "achievement", "accomplish", "win", "winner", "award",
			"honor", "record", "milestone", "success", "successful",
			"complete", "deliver", "earn", "graduate", "champion", "victory",
			"breakthrough", "excel", "triumph",
		},
	},
}
