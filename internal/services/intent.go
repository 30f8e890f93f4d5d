package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

const (
	IntentBook     = "book"
	IntentList     = "list_events"
	IntentGreeting = "greeting"
	IntentUnknown  = "unknown"
)

// Intent is the structured form of a chat message.
type Intent struct {
	Intent    string `json:"intent"`
	EventName string `json:"event_name,omitempty"`
	Quantity  int    `json:"quantity"`
}

// IntentClassifier maps free text to an Intent. A language-model backed
// implementation can sit behind the same interface.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (*Intent, error)
}

// KeywordClassifier is the offline fallback: it looks for booking verbs, a
// quantity and the event name that follows "for" or "to".
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	bookWords     = []string{"book", "buy", "purchase", "reserve", "get me", "i want", "i'd like"}
	listWords     = []string{"list", "show", "what events", "which events", "upcoming", "available events"}
	greetingWords = []string{"hello", "hi", "hey", "howdy"}

	digitQuantity = regexp.MustCompile(`\b(\d{1,3})\s*(?:tickets?|seats?|spots?)?\b`)
	eventFor      = regexp.MustCompile(`(?i)^.*?\bfor\s+(?:the\s+)?(.+?)(?:\s+(?:event|concert|game|show))?\s*[.!?]*$`)
	eventTo       = regexp.MustCompile(`(?i)^.*\bto\s+(?:the\s+)?(.+?)(?:\s+(?:event|concert|game|show))?\s*[.!?]*$`)

	numberWords = map[string]int{
		"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
)

func (KeywordClassifier) Classify(_ context.Context, text string) (*Intent, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	intent := &Intent{Intent: IntentUnknown, Quantity: 1}
	if lower == "" {
		return intent, nil
	}

	switch {
	case containsAny(lower, bookWords):
		intent.Intent = IntentBook
		intent.Quantity = parseQuantity(lower)
		intent.EventName = eventName(text)
	case containsAny(lower, listWords):
		intent.Intent = IntentList
	case containsAnyWord(lower, greetingWords):
		intent.Intent = IntentGreeting
	}
	return intent, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func containsAnyWord(s string, words []string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '!' || r == '.' || r == '?'
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func parseQuantity(lower string) int {
	if m := digitQuantity.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	for _, f := range strings.Fields(lower) {
		if n, ok := numberWords[f]; ok {
			return n
		}
	}
	return 1
}

// eventName prefers the text after the first "for" and falls back to the
// text after the last "to". Matching runs on the original text so event
// names keep the user's capitalization.
func eventName(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range []*regexp.Regexp{eventFor, eventTo} {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
