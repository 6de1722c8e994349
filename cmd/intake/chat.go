package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"education-agent/internal/app"
	"education-agent/internal/config"
	"education-agent/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the intake service from the terminal",
	Long: `Talk to the intake service from the terminal.

Each line read from stdin is one message. Type /reset to start over and
/quit (or EOF) to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.Build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		return chatLoop(cmd.Context(), a.Service, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session id to resume (default: new session)")
}

type chatService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	Reset(ctx context.Context, in usecase.ResetInput) (usecase.ResetOutput, error)
}

func chatLoop(ctx context.Context, svc chatService, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "/quit":
			return nil
		case "/reset":
			res, err := svc.Reset(ctx, usecase.ResetInput{SessionID: sessionID})
			if err != nil {
				return err
			}
			sessionID = res.SessionID
			fmt.Fprintf(out, "%s\n> ", res.Message)
			continue
		}

		res, err := svc.Chat(ctx, usecase.ChatInput{SessionID: sessionID, Message: line})
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
			fmt.Fprintf(out, "[%s] %s\n> ", ue.Code, ue.Reason)
			continue
		}
		if err != nil {
			return err
		}
		sessionID = res.SessionID
		fmt.Fprintf(out, "[%s] %s\n> ", res.Label(), res.Response)
	}
	return scanner.Err()
}
