package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// HandleLambda serves API Gateway proxy events with a streamed response.
// It is meant for lambda.Start in a function using response streaming.
// Lambda has no scrape endpoint, so relay totals are logged instead of
// counted in metrics.
func (g *Gateway) HandleLambda(ctx context.Context, req events.APIGatewayProxyRequest) (*events.LambdaFunctionURLStreamingResponse, error) {
	cors := g.corsHeaders(headerValue(req.Headers, "Origin"))

	if req.HTTPMethod == http.MethodOptions {
		return &events.LambdaFunctionURLStreamingResponse{
			StatusCode: http.StatusNoContent,
			Headers:    cors,
			Body:       strings.NewReader(""),
		}, nil
	}
	if req.HTTPMethod != http.MethodPost || !g.matchRoute(req.Path) {
		return lambdaJSON(http.StatusNotFound, "Not Found", cors), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return lambdaJSON(http.StatusBadRequest, "invalid base64 body", cors), nil
		}
		body = decoded
	}

	inv, err := g.Invoke(ctx, body)
	if err != nil {
		status, msg := invokeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			g.logger.Error("Invocation failed", zap.Error(err))
		}
		return lambdaJSON(status, msg, cors), nil
	}

	headers := streamHeaders()
	for k, v := range cors {
		headers[k] = v
	}
	return &events.LambdaFunctionURLStreamingResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body: &countingReader{
			ReadCloser: inv.Body,
			logger:     g.logger.With(zap.String("session_id", inv.SessionID)),
		},
	}, nil
}

// invokeErrorStatus maps an Invoke error to the status and message sent to
// the caller.
func invokeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNoResponseStream):
		return http.StatusInternalServerError, "No response stream"
	default:
		return http.StatusBadGateway, err.Error()
	}
}

func lambdaJSON(status int, msg string, cors map[string]string) *events.LambdaFunctionURLStreamingResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cors {
		headers[k] = v
	}
	data, _ := json.Marshal(map[string]string{"error": msg})
	return &events.LambdaFunctionURLStreamingResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       strings.NewReader(string(data)),
	}
}

// headerValue looks up a header case-insensitively; API Gateway keeps the
// caller's casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
