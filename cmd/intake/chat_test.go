package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"education-agent/internal/classify"
	"education-agent/internal/session"
	"education-agent/internal/usecase"
)

func newService(t *testing.T) *usecase.IntakeService {
	t.Helper()
	svc, err := usecase.NewIntakeService(session.NewMemoryStore(), classify.New(), nil, nil, 1000, time.Second)
	require.NoError(t, err)
	return svc
}

func TestChatLoop_RunsIntake(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("Hi\nAlex\n20\nEngineering\nWhat skills do I need?\n")

	err := chatLoop(context.Background(), newService(t), "cli-1", in, &out)
	require.NoError(t, err)

	got := out.String()
	require.Contains(t, got, "Nice to meet you, Alex!")
	require.Contains(t, got, "[career_guidance]")
}

type countingService struct {
	chatService
	chats int
}

func (c *countingService) Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	c.chats++
	return c.chatService.Chat(ctx, in)
}

func TestChatLoop_ResetAndQuit(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("Hi\n/reset\n/quit\nnever sent\n")
	svc := &countingService{chatService: newService(t)}

	err := chatLoop(context.Background(), svc, "cli-2", in, &out)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Conversation reset successfully")
	require.Equal(t, 1, svc.chats)
}

func TestChatLoop_InvalidInputKeepsLooping(t *testing.T) {
	svc, err := usecase.NewIntakeService(session.NewMemoryStore(), classify.New(), nil, nil, 5, time.Second)
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("this line is too long\nHi\n")
	err = chatLoop(context.Background(), svc, "cli-3", in, &out)
	require.NoError(t, err)

	got := out.String()
	require.Contains(t, got, "[INVALID_INPUT] message_too_long")
	require.Contains(t, got, "[name]")
}

type brokenService struct {
	chatService
}

func (brokenService) Chat(context.Context, usecase.ChatInput) (usecase.ChatOutput, error) {
	return usecase.ChatOutput{}, &usecase.Error{Code: usecase.ErrorInternal, Reason: "session_update_error", Err: errors.New("store down")}
}

func TestChatLoop_InternalErrorStops(t *testing.T) {
	var out bytes.Buffer
	err := chatLoop(context.Background(), brokenService{}, "cli-4", strings.NewReader("Hi\nHi\n"), &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "store down")
}

func TestProfileCmd_RequiresArg(t *testing.T) {
	rootCmd.SetArgs([]string{"profile"})
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	require.Error(t, err)
}
