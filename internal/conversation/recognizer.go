package conversation

import "strings"

// Recognizer matches free text against the configured language set.
// Matching is exact after lowercasing and trimming; anything fuzzier would
// silently accept typos the user never meant.
type Recognizer struct {
	languages map[string]string
}

// NewRecognizer builds a recognizer over the given canonical language names.
func NewRecognizer(languages []string) *Recognizer {
	set := make(map[string]string, len(languages))
	for _, lang := range languages {
		canonical := strings.ToLower(strings.TrimSpace(lang))
		if canonical != "" {
			set[canonical] = canonical
		}
	}
	return &Recognizer{languages: set}
}

// Recognize returns the canonical language name for the input text, if any.
func (r *Recognizer) Recognize(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	// Tolerate a trailing period or exclamation mark ("French!").
	normalized = strings.TrimRight(normalized, ".!")
	lang, ok := r.languages[normalized]
	return lang, ok
}
