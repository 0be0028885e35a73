// Package openai generates replies through any OpenAI compatible chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koscakluka/talkingai/core/llms"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultModel = "gpt-4o-mini"

type Generator struct {
	client  openai.Client
	options llms.GenerationOptions
}

// NewGenerator reads the key from OPENAI_API_KEY when apiKey is empty.
func NewGenerator(apiKey string, opts ...llms.GenerationOption) (*Generator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key not found")
	}

	options := llms.GenerationOptions{Model: DefaultModel, Temperature: llms.DefaultTemperature}
	for _, opt := range opts {
		opt(&options)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	if options.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.BaseURL))
	}

	return &Generator{
		client:  openai.NewClient(requestOpts...),
		options: options,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, utterance string, persona llms.Persona) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", g.options.Model),
		attribute.Float64("request.temperature", g.options.Temperature),
	)

	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt := persona.SystemPrompt(); systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(utterance))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       g.options.Model,
		Messages:    messages,
		Temperature: openai.Float(g.options.Temperature),
	})
	if err != nil {
		err = fmt.Errorf("error requesting completion: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(
		attribute.Int64("usage.prompt", resp.Usage.PromptTokens),
		attribute.Int64("usage.completion", resp.Usage.CompletionTokens),
	)
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		err := fmt.Errorf("empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}
