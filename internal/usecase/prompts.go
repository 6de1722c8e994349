package usecase

import (
	"fmt"
	"strings"

	"education-agent/internal/domain"
)

const (
	welcomePrompt = "Hello! I'm your AI education assistant. I'd love to help you with your educational journey. " +
		"Could you please tell me your name?"
	nameRetryPrompt = "I didn't catch your name. Could you please tell me your name?"
	ageRetryPrompt  = "I didn't understand your age. Could you please tell me how old you are?"
	resetMessage    = "Conversation reset successfully"
)

var ageRangePrompt = fmt.Sprintf("Please enter a valid age between %d and %d.", domain.MinAge, domain.MaxAge)

func askAgePrompt(name string) string {
	return fmt.Sprintf("Nice to meet you, %s! How old are you?", name)
}

func askInterestPrompt(age int) string {
	return fmt.Sprintf(
		"Great! At %d years old, you have so many exciting educational opportunities ahead. "+
			"What area interests you most? (e.g., %s)",
		age, strings.Join(interestNames(), ", "),
	)
}

func askQueryPrompt(interest string) string {
	return fmt.Sprintf(
		"Excellent choice! %s is a fascinating field. "+
			"Now, what specific question or concern would you like help with regarding your education?",
		interest,
	)
}

func interestRetryPrompt() string {
	names := interestNames()
	last := len(names) - 1
	return fmt.Sprintf(
		"I didn't recognize that area of interest. Could you please choose from: %s, or %s?",
		strings.Join(names[:last], ", "), names[last],
	)
}

func interestNames() []string {
	names := make([]string, 0, len(domain.Interests))
	for _, in := range domain.Interests {
		names = append(names, string(in))
	}
	return names
}
