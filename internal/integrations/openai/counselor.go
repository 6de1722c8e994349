package openai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"education-agent/internal/domain"
)

// ErrFlagged is returned by Generate when moderation flags the query.
var ErrFlagged = errors.New("openai: query flagged by moderation")

// minReplyLength is the shortest reply Generate accepts as a real answer.
const minReplyLength = 50

const classifySystemPrompt = `You are an expert education counselor.

Classify the student's query into one of three categories:

career_guidance: courses, degrees, colleges, career paths, job prospects, field selection, program recommendations, skill development, salary information, job opportunities.

mental_health_support: academic stress, anxiety, burnout, motivation issues, study pressure, emotional well-being, concentration problems, exam stress, feeling overwhelmed, exhaustion.

general_education: study techniques, learning methods, scholarships, applications, time management, resources, general questions not fitting above categories.

Respond with ONLY ONE category: career_guidance, mental_health_support, or general_education`

const counselorSystemPrompt = `You are an expert education counselor with broad knowledge of careers, courses and study.
Give a helpful, personalised and conversational answer to the student's query.
Use clear headers, bullet points for lists, numbered steps where useful and bold for key terms.
Include direct actionable advice, realistic expectations and a suggested next step.`

// Classify asks the model for a category label. The raw label is returned;
// callers parse it.
func (c *Client) Classify(ctx context.Context, query string) (string, error) {
	zero := 0.0
	label, err := c.chat(ctx, c.model, []domain.ChatMessage{
		{Role: "system", Content: classifySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Student query: %q", query)},
	}, &zero)
	if err != nil {
		return "", fmt.Errorf("openai: Classify: %w", err)
	}
	return strings.TrimSpace(label), nil
}

// Generate writes a guidance reply for query. Flagged queries return
// ErrFlagged and replies shorter than minReplyLength are rejected so the
// caller can fall back to built-in guidance.
func (c *Client) Generate(ctx context.Context, query string, category domain.Category, profile domain.StudentProfile) (string, error) {
	flagged, err := c.Moderate(ctx, query)
	if err != nil {
		return "", fmt.Errorf("openai: Generate: %w", err)
	}
	if flagged {
		return "", ErrFlagged
	}

	reply, err := c.chat(ctx, c.model, []domain.ChatMessage{
		{Role: "system", Content: counselorSystemPrompt},
		{Role: "user", Content: studentPrompt(query, category, profile)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("openai: Generate: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if len(reply) < minReplyLength {
		return "", fmt.Errorf("openai: Generate: reply too short (%d bytes)", len(reply))
	}
	if profile.Name != "" {
		reply = "Hello " + profile.Name + "! " + reply
	}
	return reply, nil
}

func studentPrompt(query string, category domain.Category, profile domain.StudentProfile) string {
	var b strings.Builder
	if profile.Name != "" {
		b.WriteString("Student Name: " + profile.Name + "\n")
	}
	if profile.Age > 0 {
		b.WriteString("Student Age: " + strconv.Itoa(profile.Age) + "\n")
	}
	if profile.Interest != "" {
		b.WriteString("Field of Interest: " + profile.Interest + "\n")
	}
	fmt.Fprintf(&b, "Student Query: %q\n", query)
	b.WriteString("Category: " + string(category) + "\n")
	if tone := toneFor(profile.Age); tone != "" {
		b.WriteString(tone + "\n")
	}
	return b.String()
}

func toneFor(age int) string {
	switch {
	case age <= 0:
		return ""
	case age < 18:
		return "Use an encouraging, supportive tone suitable for a younger student. Focus on building confidence and long-term planning."
	case age < 25:
		return "Use an energetic, practical tone suitable for a young adult exploring career options. Focus on immediate next steps."
	default:
		return "Use a professional, insightful tone suitable for someone considering a career transition or advancement."
	}
}
