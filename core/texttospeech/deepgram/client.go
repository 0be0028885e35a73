// Package deepgram synthesizes speech with Deepgram's Aura voices.
package deepgram

import (
	"fmt"
	"net/http"
	"os"

	"github.com/koscakluka/talkingai/core/texttospeech"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultSpeakURL = "https://api.deepgram.com/v1/speak"

type SpeechSynthesizer struct {
	apiKey     string
	speakURL   string
	httpClient *http.Client

	options texttospeech.SynthesisOptions
}

type ClientOption func(*SpeechSynthesizer)

// WithAPIKey sets the key used to authenticate. It defaults to the
// DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *SpeechSynthesizer) { c.apiKey = apiKey }
}

func WithSpeakURL(speakURL string) ClientOption {
	return func(c *SpeechSynthesizer) { c.speakURL = speakURL }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *SpeechSynthesizer) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithSynthesisOptions(opts ...texttospeech.SynthesisOption) ClientOption {
	return func(c *SpeechSynthesizer) {
		for _, opt := range opts {
			opt(&c.options)
		}
	}
}

func NewSpeechSynthesizer(opts ...ClientOption) (*SpeechSynthesizer, error) {
	client := &SpeechSynthesizer{
		speakURL: defaultSpeakURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		options: texttospeech.SynthesisOptions{
			Voice:     defaultVoice,
			ChunkSize: texttospeech.DefaultChunkSize,
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	if !isAvailableVoice(client.options.Voice) {
		return nil, fmt.Errorf("invalid voice %q", client.options.Voice)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		client.apiKey = apiKey
	}

	return client, nil
}

func (c *SpeechSynthesizer) Voice() string {
	return c.options.Voice
}
