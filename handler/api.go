// Package handler is the transport boundary: an API Gateway Lambda handler
// and a chi router that share request schemas and error mapping.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"education-agent/internal/domain"
	"education-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// IntakeService is the use case surface the transports need.
type IntakeService interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	Reset(ctx context.Context, in usecase.ResetInput) (usecase.ResetOutput, error)
	Session(ctx context.Context, id string) (domain.ConversationSession, bool, error)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Category  string `json:"category"`
}

type resetRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type resetResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// result is a transport-neutral response.
type result struct {
	status int
	body   any
}

type api struct {
	svc IntakeService
}

func (a api) chat(ctx context.Context, correlationID string, body []byte) result {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return a.fail(correlationID, "chat", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
	}
	out, err := a.svc.Chat(ctx, usecase.ChatInput{SessionID: req.SessionID, Message: req.Message})
	if err != nil {
		return a.fail(correlationID, "chat", err)
	}
	slog.Info("chat turn", "session_id", out.SessionID, "stage", out.Stage.String(), "correlation_id", correlationID)
	return result{status: http.StatusOK, body: chatResponse{
		Response:  out.Response,
		SessionID: out.SessionID,
		Category:  out.Label(),
	}}
}

func (a api) reset(ctx context.Context, correlationID string, body []byte) result {
	var req resetRequest
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return a.fail(correlationID, "reset", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err})
		}
	}
	out, err := a.svc.Reset(ctx, usecase.ResetInput{SessionID: req.SessionID})
	if err != nil {
		return a.fail(correlationID, "reset", err)
	}
	return result{status: http.StatusOK, body: resetResponse{Message: out.Message, SessionID: out.SessionID}}
}

func (a api) session(ctx context.Context, correlationID, id string) result {
	if strings.TrimSpace(id) == "" {
		return a.fail(correlationID, "session", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_session_id"})
	}
	sess, ok, err := a.svc.Session(ctx, id)
	if err != nil {
		return a.fail(correlationID, "session", err)
	}
	if !ok {
		return result{status: http.StatusNotFound, body: errorResponse{Error: "NOT_FOUND", CorrelationID: correlationID}}
	}
	return result{status: http.StatusOK, body: sess}
}

func root() result {
	return result{status: http.StatusOK, body: statusResponse{Message: "Education Intake API", Status: "running"}}
}

func notFound(correlationID string) result {
	return result{status: http.StatusNotFound, body: errorResponse{Error: "NOT_FOUND", CorrelationID: correlationID}}
}

// fail maps err to a status and a generic body. Detail is only logged.
func (a api) fail(correlationID, op string, err error) result {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "op", op, "correlation_id", correlationID, "err", err)
	} else {
		slog.Warn("request rejected", "op", op, "correlation_id", correlationID, "err", err)
	}
	return result{status: status, body: errorResponse{Error: string(code), CorrelationID: correlationID}}
}

func classifyError(err error) (int, usecase.ErrorCode) {
	var ue *usecase.Error
	if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
		return http.StatusBadRequest, usecase.ErrorInvalidInput
	}
	return http.StatusInternalServerError, usecase.ErrorInternal
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"INTERNAL_ERROR"}`
	}
	return string(b)
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
