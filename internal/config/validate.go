package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/koscakluka/talkingai/core/audio"
)

// Validate reports every missing key and invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.APIKeys.Deepgram == "" {
		errs = append(errs, errors.New("DEEPGRAM_API_KEY is required"))
	}
	switch c.LLM.Provider {
	case ProviderGroq:
		if c.APIKeys.Groq == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required for the groq provider"))
		}
	case ProviderOpenAI:
		if c.APIKeys.OpenAI == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature %v out of range [0, 2]", c.LLM.Temperature))
	}
	if c.Persona.WordLimit < 0 {
		errs = append(errs, fmt.Errorf("persona word limit must not be negative"))
	}

	if c.Transcription.EndpointingMs < 10 {
		errs = append(errs, fmt.Errorf("endpointing %dms is too short", c.Transcription.EndpointingMs))
	}
	if c.Transcription.UtteranceEndMs < 0 {
		errs = append(errs, fmt.Errorf("utterance end must not be negative"))
	}
	if strings.TrimSpace(c.Transcription.Language) == "" {
		errs = append(errs, errors.New("transcription language is required"))
	}

	if _, err := audio.ParseFormat(c.Audio.Encoding); err != nil {
		errs = append(errs, err)
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid sample rate %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("invalid channel count %d", c.Audio.Channels))
	}
	if !slices.Contains([]string{PlayerFFplay, PlayerMiniaudio, PlayerPortaudio}, c.Audio.Player) {
		errs = append(errs, fmt.Errorf("unknown player %q", c.Audio.Player))
	}
	if c.Audio.PlaybackQueueSize < 1 {
		errs = append(errs, fmt.Errorf("playback queue size must be positive"))
	}
	if c.Speech.Voice == "" {
		errs = append(errs, errors.New("speech voice is required"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if endpoint := c.Telemetry.OTLPEndpoint; endpoint != "" {
		if u, err := url.Parse(endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid otlp endpoint %q", endpoint))
		}
	}

	return errors.Join(errs...)
}

// Masked returns a copy safe to print.
func (c Config) Masked() Config {
	c.APIKeys.Deepgram = mask(c.APIKeys.Deepgram)
	c.APIKeys.Groq = mask(c.APIKeys.Groq)
	c.APIKeys.OpenAI = mask(c.APIKeys.OpenAI)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
