package domain

import "strings"

const (
	MinAge = 13
	MaxAge = 100
)

// StudentProfile is the set of fields collected during an intake dialogue.
// Zero values mean "unset".
type StudentProfile struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Interest string `json:"interest"`
	Query    string `json:"query"`
}

// Complete reports whether every field has been collected.
func (p StudentProfile) Complete() bool {
	return p.Name != "" && p.Age != 0 && p.Interest != "" && p.Query != ""
}

// AgeInRange reports whether age is acceptable for a student profile.
func AgeInRange(age int) bool {
	return age >= MinAge && age <= MaxAge
}

// Interest is one of the fixed areas a student can pick.
type Interest string

const (
	InterestEngineering Interest = "Engineering"
	InterestMedicine    Interest = "Medicine"
	InterestArts        Interest = "Arts"
	InterestBusiness    Interest = "Business"
	InterestScience     Interest = "Science"
	InterestLaw         Interest = "Law"
	InterestEducation   Interest = "Education"
)

// Interests lists every interest in the order extraction tries them.
var Interests = []Interest{
	InterestEngineering,
	InterestMedicine,
	InterestArts,
	InterestBusiness,
	InterestScience,
	InterestLaw,
	InterestEducation,
}

// ParseInterest normalizes s case-insensitively to a known Interest.
func ParseInterest(s string) (Interest, bool) {
	s = strings.TrimSpace(s)
	for _, in := range Interests {
		if strings.EqualFold(s, string(in)) {
			return in, true
		}
	}
	return "", false
}

// Category is the topical classification of a student query.
type Category string

const (
	CategoryCareerGuidance      Category = "career_guidance"
	CategoryMentalHealthSupport Category = "mental_health_support"
	CategoryGeneralEducation    Category = "general_education"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCareerGuidance, CategoryMentalHealthSupport, CategoryGeneralEducation:
		return true
	}
	return false
}

// ProfileRecord is the persisted shape of an intake. Empty fields are
// treated as "not known yet" by every store and never overwrite saved values.
type ProfileRecord struct {
	SessionID    string
	Name         string
	Age          int
	Interest     string
	Query        string
	GuidanceType Category
	UpdatedAt    string
	CompletedAt  string
	// Reopen starts the stored profile over: fields left empty in this record
	// are cleared instead of kept. Set on the first write of every intake run.
	Reopen bool
}

// NewProfileRecord snapshots p for sessionID.
func NewProfileRecord(sessionID string, p StudentProfile) ProfileRecord {
	return ProfileRecord{
		SessionID: sessionID,
		Name:      p.Name,
		Age:       p.Age,
		Interest:  p.Interest,
		Query:     p.Query,
	}
}
