// Package extract pulls student profile fields out of free text using fixed
// phrase patterns and keyword tables.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"education-agent/internal/domain"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`my name is ([a-z]+)`),
	regexp.MustCompile(`i'm ([a-z]+)`),
	regexp.MustCompile(`i am ([a-z]+)`),
	regexp.MustCompile(`call me ([a-z]+)`),
	regexp.MustCompile(`name is ([a-z]+)`),
	regexp.MustCompile(`this is ([a-z]+)`),
}

// The pattern only matches 13-99 while acceptance allows up to 100, so 100
// is never extracted.
var agePattern = regexp.MustCompile(`\b(1[3-9]|[2-9][0-9])\b`)

// nameStopwords are single-word replies that are never taken as a name.
var nameStopwords = map[string]struct{}{
	"hi": {}, "hello": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
	"thanks": {}, "thank": {}, "you": {}, "me": {}, "i": {}, "am": {},
	"is": {}, "the": {}, "a": {}, "an": {},
}

type interestKeywords struct {
	interest domain.Interest
	keywords []string
}

// interestTable is checked in order; the first interest with a hit wins.
var interestTable = []interestKeywords{
	{domain.InterestEngineering, []string{"engineering", "engineer", "tech", "technology", "computer", "mechanical", "electrical", "civil", "chemical", "aerospace", "software", "hardware"}},
	{domain.InterestMedicine, []string{"medicine", "medical", "doctor", "healthcare", "nursing", "pharmacy", "dentistry", "veterinary"}},
	{domain.InterestArts, []string{"arts", "art", "design", "creative", "music", "painting", "drawing", "photography", "film", "animation"}},
	{domain.InterestBusiness, []string{"business", "commerce", "management", "mba", "finance", "accounting", "marketing", "entrepreneurship", "economics"}},
	{domain.InterestScience, []string{"science", "physics", "chemistry", "biology", "mathematics", "math", "research", "laboratory", "data"}},
	{domain.InterestLaw, []string{"law", "legal", "lawyer", "attorney", "justice", "court", "criminal", "corporate"}},
	{domain.InterestEducation, []string{"education", "teaching", "teacher", "pedagogy", "school", "academic", "professor"}},
}

// Extract returns known with any unset field filled from message. Fields that
// are already set are never changed.
func Extract(message string, known domain.StudentProfile) domain.StudentProfile {
	out := known
	if strings.TrimSpace(message) == "" {
		return out
	}
	if out.Name == "" {
		if name, ok := Name(message); ok {
			out.Name = name
		}
	}
	if out.Age == 0 {
		if age, matched := MatchAge(message); matched && domain.AgeInRange(age) {
			out.Age = age
		}
	}
	if out.Interest == "" {
		if in, ok := MatchInterest(message); ok {
			out.Interest = string(in)
		}
	}
	return out
}

// Name finds a name in message, first through the phrase patterns and then by
// accepting a message that is a single plausible word.
func Name(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return capitalize(m[1]), true
		}
	}

	fields := strings.Fields(message)
	if len(fields) != 1 {
		return "", false
	}
	word := fields[0]
	n := utf8.RuneCountInString(word)
	if n < 2 || n > 15 || !isAlpha(word) {
		return "", false
	}
	if _, stop := nameStopwords[strings.ToLower(word)]; stop {
		return "", false
	}
	return capitalize(word), true
}

// MatchAge returns the first standalone number the age pattern finds in
// message. matched is false when there is none; range validation is left to
// the caller.
func MatchAge(message string) (age int, matched bool) {
	m := agePattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	age, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return age, true
}

// MatchInterest returns the first interest whose keywords appear in message.
func MatchInterest(message string) (domain.Interest, bool) {
	lower := strings.ToLower(message)
	for _, row := range interestTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.interest, true
			}
		}
	}
	return "", false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
