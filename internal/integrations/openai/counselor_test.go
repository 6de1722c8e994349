package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"education-agent/internal/domain"
)

type fakeUpstream struct {
	flagged    bool
	reply      string
	chatStatus int
	lastChat   chatRequest
	chatCalls  int
}

func (f *fakeUpstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/moderations":
			if f.flagged {
				_, _ = w.Write([]byte(`{"results":[{"flagged":true}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"flagged":false}]}`))
		case "/v1/chat/completions":
			f.chatCalls++
			require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastChat))
			if f.chatStatus != 0 {
				w.WriteHeader(f.chatStatus)
				return
			}
			out, err := json.Marshal(map[string]any{
				"choices": []map[string]any{{
					"index":   0,
					"message": map[string]string{"role": "assistant", "content": f.reply},
				}},
			})
			require.NoError(t, err)
			_, _ = w.Write(out)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newCounselor(t *testing.T, up *fakeUpstream) *Client {
	t.Helper()
	c, err := NewClient(nil, "", WithAPIKey("sk-test"), WithModel("gpt-mock"), WithBaseURL(up.server(t).URL))
	require.NoError(t, err)
	return c
}

func TestClassify_ReturnsTrimmedLabel(t *testing.T) {
	up := &fakeUpstream{reply: "  career_guidance\n"}
	c := newCounselor(t, up)

	label, err := c.Classify(context.Background(), "Which degree should I pick?")
	require.NoError(t, err)
	require.Equal(t, "career_guidance", label)

	require.Equal(t, "gpt-mock", up.lastChat.Model)
	require.Len(t, up.lastChat.Messages, 2)
	require.Equal(t, "system", up.lastChat.Messages[0].Role)
	require.Contains(t, up.lastChat.Messages[1].Content, "Which degree should I pick?")
	require.NotNil(t, up.lastChat.Temperature)
	require.Zero(t, *up.lastChat.Temperature)
}

func TestClassify_UpstreamError(t *testing.T) {
	up := &fakeUpstream{chatStatus: http.StatusServiceUnavailable}
	c := newCounselor(t, up)

	_, err := c.Classify(context.Background(), "hi")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusServiceUnavailable, statusErr.HTTPStatusCode())
}

func TestGenerate_PersonalisedReply(t *testing.T) {
	up := &fakeUpstream{reply: strings.Repeat("Study the fundamentals and build projects. ", 3)}
	c := newCounselor(t, up)

	profile := domain.StudentProfile{Name: "Alex", Age: 20, Interest: "Engineering"}
	reply, err := c.Generate(context.Background(), "What skills do I need?", domain.CategoryCareerGuidance, profile)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(reply, "Hello Alex! Study the fundamentals"))

	prompt := up.lastChat.Messages[1].Content
	require.Contains(t, prompt, "Student Name: Alex")
	require.Contains(t, prompt, "Student Age: 20")
	require.Contains(t, prompt, "Field of Interest: Engineering")
	require.Contains(t, prompt, "Category: career_guidance")
	require.Contains(t, prompt, "young adult")
}

func TestGenerate_Flagged(t *testing.T) {
	up := &fakeUpstream{flagged: true, reply: "unused"}
	c := newCounselor(t, up)

	_, err := c.Generate(context.Background(), "bad", domain.CategoryGeneralEducation, domain.StudentProfile{})
	require.ErrorIs(t, err, ErrFlagged)
	require.Zero(t, up.chatCalls)
}

func TestGenerate_ShortReplyRejected(t *testing.T) {
	up := &fakeUpstream{reply: "ok"}
	c := newCounselor(t, up)

	_, err := c.Generate(context.Background(), "hi", domain.CategoryGeneralEducation, domain.StudentProfile{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "too short")
}

func TestToneFor(t *testing.T) {
	require.Empty(t, toneFor(0))
	require.Contains(t, toneFor(15), "younger student")
	require.Contains(t, toneFor(22), "young adult")
	require.Contains(t, toneFor(40), "professional")
}

func TestStudentPrompt_OmitsUnknownFields(t *testing.T) {
	got := studentPrompt("How do I focus?", domain.CategoryMentalHealthSupport, domain.StudentProfile{})
	require.NotContains(t, got, "Student Name")
	require.NotContains(t, got, "Student Age")
	require.Contains(t, got, "Category: mental_health_support")
}
