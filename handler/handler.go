package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"education-agent/internal/usecase"
)

// Handler serves API Gateway proxy events.
type Handler struct {
	api api
}

func NewHandler(svc IntakeService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: intake service must not be nil")
	}
	return &Handler{api: api{svc: svc}}, nil
}

// Handle routes POST /chat, POST /reset, GET / and GET /sessions/{id}.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return respond(h.api.fail(correlationID, "decode", &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}), correlationID), nil
		}
		body = decoded
	}

	path := "/" + strings.Trim(event.Path, "/")
	var res result
	switch {
	case event.HTTPMethod == http.MethodPost && path == "/chat":
		res = h.api.chat(ctx, correlationID, body)
	case event.HTTPMethod == http.MethodPost && path == "/reset":
		res = h.api.reset(ctx, correlationID, body)
	case event.HTTPMethod == http.MethodGet && path == "/":
		res = root()
	case event.HTTPMethod == http.MethodGet && strings.HasPrefix(path, "/sessions/"):
		res = h.api.session(ctx, correlationID, strings.TrimPrefix(path, "/sessions/"))
	default:
		res = notFound(correlationID)
	}
	return respond(res, correlationID), nil
}

func respond(res result, correlationID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: marshal(res.body),
	}
}

// headerValue looks key up case-insensitively; API Gateway does not
// normalise header names.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
