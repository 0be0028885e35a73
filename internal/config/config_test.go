package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func clearEnv(t *testing.T) {
	t.Helper()
	names := []string{"DEEPGRAM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"}
	for _, entry := range os.Environ() {
		if name, _, _ := strings.Cut(entry, "="); strings.HasPrefix(name, EnvPrefix+"_") {
			names = append(names, name)
		}
	}
	for _, name := range names {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	configPath := writeFile(t, "talkingai.yaml", `
llm:
  provider: openai
  temperature: 0.5
conversation:
  termination_keyword: 再見
  fragment_separator: "，"
transcription:
  language: zh-TW
  endpointing_ms: 500
`)
	envPath := writeFile(t, "test.env", "OPENAI_API_KEY=from-dotenv\nTALKINGAI_TRANSCRIPTION_ENDPOINTING_MS=600\n")
	t.Setenv("TALKINGAI_TRANSCRIPTION_ENDPOINTING_MS", "700")

	cfg, err := Load(configPath, envPath, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.Temperature != 0.5 {
		t.Fatalf("expected file values, got %+v", cfg.LLM)
	}
	if cfg.Conversation.FragmentSeparator != "，" || cfg.Transcription.Language != "zh-TW" {
		t.Fatalf("expected zh-TW settings from file, got %+v %+v", cfg.Conversation, cfg.Transcription)
	}
	if cfg.APIKeys.OpenAI != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.APIKeys.OpenAI)
	}
	if cfg.Transcription.EndpointingMs != 700 {
		t.Fatalf("expected process env to win, got %d", cfg.Transcription.EndpointingMs)
	}
	if cfg.Persona.WordLimit != 20 {
		t.Fatalf("expected default word limit, got %d", cfg.Persona.WordLimit)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	configPath := writeFile(t, "talkingai.yaml", "llm:\n  providr: groq\n")

	_, err := Load(configPath, "", nil)
	if err == nil || !strings.Contains(err.Error(), "providr") {
		t.Fatalf("expected error naming the unknown field, got %v", err)
	}
}

func TestLoadEnvOverridesEveryKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("TALKINGAI_LLM_TEMPERATURE", "0.7")
	t.Setenv("TALKINGAI_CONVERSATION_DISCARD_WHILE_BUSY", "false")
	t.Setenv("TALKINGAI_AUDIO_SAMPLE_RATE", "16000")
	t.Setenv("TALKINGAI_SPEECH_VOICE", "aura-orion-en")
	t.Setenv("GROQ_API_KEY", "gq-key")

	cfg, err := Load("", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.LLM.Temperature)
	}
	if cfg.Conversation.DiscardWhileBusy {
		t.Fatalf("expected discarding to be turned off")
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Speech.Voice != "aura-orion-en" {
		t.Fatalf("expected env values, got %+v %+v", cfg.Audio, cfg.Speech)
	}
	if cfg.APIKeys.Groq != "gq-key" {
		t.Fatalf("expected key from GROQ_API_KEY, got %q", cfg.APIKeys.Groq)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("TALKINGAI_SPEECH_VOICE", "aura-orion-en")
	t.Setenv("TALKINGAI_LLM_PROVIDER", "openai")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("voice", "", "")
	flags.String("provider", "", "")
	flags.String("log-level", "", "")
	if err := flags.Parse([]string{"--voice", "aura-luna-en", "--log-level", "debug"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load("", "", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Speech.Voice != "aura-luna-en" || cfg.LogLevel != "debug" {
		t.Fatalf("expected flag values, got voice %q log level %q", cfg.Speech.Voice, cfg.LogLevel)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Fatalf("expected unset flag to leave env value, got %q", cfg.LLM.Provider)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadReportsInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("TALKINGAI_PERSONA_WORD_LIMIT", "twenty")

	if _, err := Load("", "", nil); err == nil || !strings.Contains(err.Error(), "word_limit") {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.APIKeys = APIKeys{Deepgram: "dg", Groq: "gq"}

	testCases := []struct {
		name     string
		modify   func(c *Config)
		contains string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "missing deepgram key", modify: func(c *Config) { c.APIKeys.Deepgram = "" }, contains: "DEEPGRAM_API_KEY"},
		{name: "missing provider key", modify: func(c *Config) { c.LLM.Provider = ProviderOpenAI }, contains: "OPENAI_API_KEY"},
		{name: "unknown provider", modify: func(c *Config) { c.LLM.Provider = "bard" }, contains: "unknown llm provider"},
		{name: "unknown player", modify: func(c *Config) { c.Audio.Player = "vlc" }, contains: "unknown player"},
		{name: "bad encoding", modify: func(c *Config) { c.Audio.Encoding = "flac" }, contains: "unsupported audio encoding"},
		{name: "short endpointing", modify: func(c *Config) { c.Transcription.EndpointingMs = 0 }, contains: "endpointing"},
		{name: "bad log level", modify: func(c *Config) { c.LogLevel = "loud" }, contains: "log level"},
		{name: "otlp endpoint", modify: func(c *Config) { c.Telemetry.OTLPEndpoint = "http://localhost:4318" }},
		{name: "bad otlp endpoint", modify: func(c *Config) { c.Telemetry.OTLPEndpoint = "localhost:4318" }, contains: "otlp endpoint"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.contains == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("expected error containing %q, got %v", tc.contains, err)
			}
		})
	}
}

func TestMaskedHidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.APIKeys = APIKeys{Deepgram: "dg-1234567890", Groq: "short"}

	masked := cfg.Masked()
	if masked.APIKeys.Deepgram != "dg-1****" || masked.APIKeys.Groq != "****" || masked.APIKeys.OpenAI != "" {
		t.Fatalf("expected masked keys, got %+v", masked.APIKeys)
	}
	if cfg.APIKeys.Deepgram != "dg-1234567890" {
		t.Fatalf("expected original to be untouched")
	}
}

func TestSchemaDescribesConfigFile(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"llm", "persona", "conversation", "transcription", "audio", "speech", "log_level", "telemetry"} {
		if _, ok := schema.Properties[key]; !ok {
			t.Fatalf("expected schema property %q, got %s", key, data)
		}
	}
}
