// Package classify assigns a student query to one of the guidance categories.
//
// Classification flow:
//  1. Known interest short-circuit (career guidance unless the query reads as a
//     mental health concern).
//  2. External model, when configured.
//  3. Keyword vote, which is also the fallback when the model fails.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"education-agent/internal/domain"
	"education-agent/internal/metrics"
)

const defaultTimeout = 8 * time.Second

// Source records which rule produced a category.
type Source string

const (
	SourceContext  Source = "context"
	SourceExternal Source = "external"
	SourceKeywords Source = "keywords"
)

// External is a model that labels a query with free text.
type External interface {
	Classify(ctx context.Context, query string) (string, error)
}

var mentalHealthTriggers = []string{
	"stress", "anxiety", "depressed", "overwhelmed", "burnout",
	"tired", "exhausted", "motivation", "pressure",
}

var (
	careerKeywords = []string{
		"course", "degree", "college", "university", "career", "job", "field", "major",
		"study", "program", "major", "career path", "job prospects", "industry", "salary",
		"required education", "job opportunities", "career transitions", "skill development",
	}
	mentalHealthKeywords = []string{
		"stress", "anxiety", "depressed", "overwhelmed", "burnout", "tired", "exhausted",
		"motivation", "pressure", "concentration", "exam stress", "mental health",
	}
	generalKeywords = []string{
		"study", "learn", "technique", "method", "educational system", "advice",
		"scholarship", "application", "time management", "resource",
	}
)

// labelForms maps model output fragments to categories, checked in order.
var labelForms = []struct {
	fragment string
	category domain.Category
}{
	{"career_guidance", domain.CategoryCareerGuidance},
	{"career guidance", domain.CategoryCareerGuidance},
	{"mental_health_support", domain.CategoryMentalHealthSupport},
	{"mental health support", domain.CategoryMentalHealthSupport},
	{"mental health", domain.CategoryMentalHealthSupport},
	{"general_education", domain.CategoryGeneralEducation},
	{"general education", domain.CategoryGeneralEducation},
}

// Classifier never fails: model errors and unparseable labels fall back to
// the keyword vote.
type Classifier struct {
	external External
	timeout  time.Duration
}

type Option func(*Classifier)

// WithExternal enables the model step.
func WithExternal(e External) Option {
	return func(c *Classifier) {
		c.external = e
	}
}

// WithTimeout bounds a single model call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the category for query given what is known about the
// student, and the rule that decided it.
func (c *Classifier) Classify(ctx context.Context, query string, profile *domain.StudentProfile) (domain.Category, Source) {
	if cat, ok := ByContext(query, profile); ok {
		return cat, SourceContext
	}
	if c != nil && c.external != nil {
		if cat, ok := c.classifyExternal(ctx, query); ok {
			return cat, SourceExternal
		}
	}
	return ByKeywords(query), SourceKeywords
}

func (c *Classifier) classifyExternal(ctx context.Context, query string) (domain.Category, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.external.Classify(ctx, query)
	if err != nil {
		slog.Warn("external classification failed", "err", err)
		metrics.ObserveCollaboratorFailure("classifier")
		return "", false
	}
	cat, ok := ParseLabel(raw)
	if !ok {
		slog.Warn("external classification returned unknown label", "label", raw)
	}
	return cat, ok
}

// ByContext applies the known-interest rule. ok is false when the profile has
// no recognised interest and later rules must decide.
func ByContext(query string, profile *domain.StudentProfile) (domain.Category, bool) {
	if profile == nil {
		return "", false
	}
	if _, known := domain.ParseInterest(profile.Interest); !known {
		return "", false
	}
	if containsAny(strings.ToLower(query), mentalHealthTriggers) {
		return domain.CategoryMentalHealthSupport, true
	}
	return domain.CategoryCareerGuidance, true
}

// ParseLabel finds a category name in free-text model output.
func ParseLabel(raw string) (domain.Category, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, f := range labelForms {
		if strings.Contains(lower, f.fragment) {
			return f.category, true
		}
	}
	return "", false
}

// ByKeywords counts keyword hits per category and returns the strict
// winner, or general education on a tie.
func ByKeywords(query string) domain.Category {
	lower := strings.ToLower(query)
	career := countMatches(lower, careerKeywords)
	mental := countMatches(lower, mentalHealthKeywords)
	general := countMatches(lower, generalKeywords)

	switch {
	case career > mental && career > general:
		return domain.CategoryCareerGuidance
	case mental > career && mental > general:
		return domain.CategoryMentalHealthSupport
	default:
		return domain.CategoryGeneralEducation
	}
}

func countMatches(s string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			n++
		}
	}
	return n
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
