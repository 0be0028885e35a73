// Package groq generates replies with Groq's OpenAI compatible chat
// completions endpoint, reading the answer as a server-sent event stream.
package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/koscakluka/talkingai/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultModel = "llama-3.3-70b-versatile"

	defaultURL  = "https://api.groq.com/openai/v1/chat/completions"
	endMessage  = "[DONE]"
	chunkPrefix = "data:"
)

type Generator struct {
	apiKey     string
	url        string
	httpClient *http.Client
	options    llms.GenerationOptions
}

// NewGenerator reads the key from GROQ_API_KEY when apiKey is empty.
func NewGenerator(apiKey string, opts ...llms.GenerationOption) (*Generator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key not found")
	}

	options := llms.GenerationOptions{Model: DefaultModel, Temperature: llms.DefaultTemperature}
	for _, opt := range opts {
		opt(&options)
	}

	url := defaultURL
	if options.BaseURL != "" {
		url = strings.TrimSuffix(options.BaseURL, "/") + "/chat/completions"
	}

	return &Generator{
		apiKey: apiKey,
		url:    url,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		options: options,
	}, nil
}

// Generate returns the complete reply to utterance.
func (g *Generator) Generate(ctx context.Context, utterance string, persona llms.Persona) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", g.options.Model),
		attribute.Float64("request.temperature", g.options.Temperature),
	)

	reply, err := g.generate(ctx, span, utterance, persona)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

func (g *Generator) generate(ctx context.Context, span trace.Span, utterance string, persona llms.Persona) (string, error) {
	reqBody := requestBody{
		Model:       g.options.Model,
		Messages:    toMessages(persona.SystemPrompt(), utterance),
		Stream:      true,
		Temperature: g.options.Temperature,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	requestStart := time.Now()
	span.AddEvent("request started")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return "", fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	firstToken := true
	var response strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
		if len(chunk) == 0 {
			continue
		}
		if chunk == endMessage {
			break
		}

		var responseBody streamingResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			logger.Warn("skipping malformed stream chunk", "error", err)
			continue
		}

		if len(responseBody.Choices) > 0 && responseBody.Choices[0].Delta.Content != "" {
			if firstToken {
				firstToken = false
				span.SetAttributes(attribute.Float64("response.request_to_first_token_time", time.Since(requestStart).Seconds()))
				span.AddEvent("received first chunk")
			}
			response.WriteString(responseBody.Choices[0].Delta.Content)
		}

		usage := responseBody.Usage
		if usage == nil && responseBody.XGroq != nil {
			usage = responseBody.XGroq.Usage
		}
		if usage != nil {
			span.SetAttributes(
				attribute.Int("usage.prompt", usage.PromptTokens),
				attribute.Int("usage.completion", usage.CompletionTokens),
				attribute.Int("usage.total", usage.TotalTokens),
				attribute.Float64("usage.queue_time", usage.QueueTime),
				attribute.Float64("usage.total_time", usage.TotalTime),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading streamed response: %w", err)
	}

	reply := strings.TrimSpace(response.String())
	if reply == "" {
		return "", fmt.Errorf("empty response")
	}
	return reply, nil
}
