// Package guidance holds the built-in guidance texts returned when no model
// generator is available.
package guidance

import (
	"context"
	"fmt"
	"strings"

	"education-agent/internal/domain"
)

var fieldNotes = map[domain.Interest]string{
	domain.InterestEngineering: "Build a strong math and physics base, try hands-on projects, and look for internships early.",
	domain.InterestMedicine:    "Focus on biology and chemistry, volunteer in care settings, and plan for long training pathways.",
	domain.InterestArts:        "Keep a portfolio, practise every week, and seek feedback from working artists.",
	domain.InterestBusiness:    "Learn accounting and economics basics, join clubs, and get real project or internship experience.",
	domain.InterestScience:     "Strengthen math and lab skills, read research summaries, and ask about undergraduate research roles.",
	domain.InterestLaw:         "Practise reading and writing arguments, join debate, and visit a court or legal clinic.",
	domain.InterestEducation:   "Tutor or mentor younger students and learn how people learn, not only what they learn.",
}

var categoryBodies = map[domain.Category]string{
	domain.CategoryCareerGuidance: strings.Join([]string{
		"**Career Guidance**",
		"• **Self-Assessment**: list your interests, skills and values",
		"• **Research**: compare programs, entry requirements and job outlook",
		"• **Experience**: internships, projects and volunteering count",
		"• **Network**: talk to people already working in the field",
	}, "\n"),
	domain.CategoryMentalHealthSupport: strings.Join([]string{
		"**Academic Wellbeing Support**",
		"• **Stress**: break work into small steps and take regular breaks",
		"• **Routine**: protect sleep, meals and some daily movement",
		"• **Support**: talk to a counselor, advisor, or someone you trust",
		"",
		"Asking for help is a sign of strength. You're not alone in this.",
	}, "\n"),
	domain.CategoryGeneralEducation: strings.Join([]string{
		"**General Education Guidance**",
		"• **Study Skills**: active recall, spaced repetition, clear notes",
		"• **Planning**: weekly goals and a realistic timetable",
		"• **Resources**: tutoring centers, libraries and online courses",
	}, "\n"),
}

// Static produces guidance from the fixed texts above. It never fails.
type Static struct{}

func (Static) Generate(_ context.Context, _ string, category domain.Category, profile domain.StudentProfile) (string, error) {
	return Text(category, profile), nil
}

// Text builds the guidance for category, personalised with the profile's
// name and field when known.
func Text(category domain.Category, profile domain.StudentProfile) string {
	body, ok := categoryBodies[category]
	if !ok {
		body = categoryBodies[domain.CategoryGeneralEducation]
	}

	var b strings.Builder
	if profile.Name != "" {
		fmt.Fprintf(&b, "Thanks, %s. ", profile.Name)
	}
	if in, ok := domain.ParseInterest(profile.Interest); ok && category == domain.CategoryCareerGuidance {
		fmt.Fprintf(&b, "For %s: %s", in, fieldNotes[in])
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(body)
	return b.String()
}
