package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrEmptyAnswer модель не вернула ни одного варианта
var ErrEmptyAnswer = errors.New("empty answer")

// Asker задаёт вопрос языковой модели
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// HTTPAsker клиент OpenAI-совместимого эндпоинта chat completions
type HTTPAsker struct {
	Endpoint string
	Model    string
	APIKey   string

	httpClient *http.Client
}

// NewHTTPAsker создаёт клиента с таймаутом timeout
func NewHTTPAsker(endpoint, model, apiKey string, timeout time.Duration) *HTTPAsker {
	return &HTTPAsker{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Ask отправляет вопрос и возвращает текст первого варианта ответа
func (a *HTTPAsker) Ask(ctx context.Context, question string) (string, error) {
	ctx, span := otel.Tracer("tile-brawl/console").Start(ctx, "console.ask")
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("llm.model", a.Model),
	)

	text, err := a.do(ctx, requestID, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

func (a *HTTPAsker) do(ctx context.Context, requestID, question string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    a.Model,
		Messages: []chatMessage{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if out.Error != nil {
			return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	return out.Choices[0].Message.Content, nil
}
