// Package config loads the talkingai configuration from defaults, an
// optional YAML file, a .env file, the process environment and command line
// flags, in that order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/koscakluka/talkingai/core/audio"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"

	PlayerFFplay    = "ffplay"
	PlayerMiniaudio = "miniaudio"
	PlayerPortaudio = "portaudio"

	DefaultEnvFile = ".env"
)

type Config struct {
	APIKeys       APIKeys             `yaml:"api_keys" jsonschema:"description=Service credentials. Prefer the environment variables."`
	LLM           LLMConfig           `yaml:"llm"`
	Persona       PersonaConfig       `yaml:"persona"`
	Conversation  ConversationConfig  `yaml:"conversation"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Audio         AudioConfig         `yaml:"audio"`
	Speech        SpeechConfig        `yaml:"speech"`
	LogLevel      string              `yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

type APIKeys struct {
	Deepgram string `yaml:"deepgram"`
	Groq     string `yaml:"groq"`
	OpenAI   string `yaml:"openai"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" jsonschema:"enum=groq,enum=openai"`
	Model       string  `yaml:"model" jsonschema:"description=Defaults to the provider's default model"`
	Temperature float64 `yaml:"temperature" jsonschema:"minimum=0,maximum=2"`
	BaseURL     string  `yaml:"base_url"`
}

type PersonaConfig struct {
	Instructions string `yaml:"instructions"`
	WordLimit    int    `yaml:"word_limit" jsonschema:"minimum=0"`
}

type ConversationConfig struct {
	TerminationKeyword string `yaml:"termination_keyword"`
	FragmentSeparator  string `yaml:"fragment_separator"`
	DiscardWhileBusy   bool   `yaml:"discard_while_busy"`
}

type TranscriptionConfig struct {
	Model          string `yaml:"model"`
	Language       string `yaml:"language"`
	EndpointingMs  int    `yaml:"endpointing_ms" jsonschema:"minimum=10"`
	UtteranceEndMs int    `yaml:"utterance_end_ms" jsonschema:"minimum=0,description=0 disables the word-gap end of utterance signal"`
	SmartFormat    bool   `yaml:"smart_format"`
}

type AudioConfig struct {
	SampleRate        int    `yaml:"sample_rate"`
	Encoding          string `yaml:"encoding" jsonschema:"enum=linear16,enum=mulaw,enum=alaw"`
	Channels          int    `yaml:"channels" jsonschema:"minimum=1,maximum=2"`
	Player            string `yaml:"player" jsonschema:"enum=ffplay,enum=miniaudio,enum=portaudio"`
	PlaybackQueueSize int    `yaml:"playback_queue_size" jsonschema:"minimum=1"`
}

type SpeechConfig struct {
	Voice string `yaml:"voice"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" jsonschema:"description=OTLP/HTTP URL to export traces to. Tracing is off when empty."`
}

func Default() Config {
	return Config{
		LLM: LLMConfig{Provider: ProviderGroq, Temperature: 0.1},
		Persona: PersonaConfig{
			Instructions: "Your name is Emma. That is very important.",
			WordLimit:    20,
		},
		Conversation: ConversationConfig{
			TerminationKeyword: "goodbye",
			FragmentSeparator:  " ",
			DiscardWhileBusy:   true,
		},
		Transcription: TranscriptionConfig{
			Model:         "nova-2",
			Language:      "en-US",
			EndpointingMs: 380,
			SmartFormat:   true,
		},
		Audio: AudioConfig{
			SampleRate:        audio.DefaultSampleRate,
			Encoding:          audio.DefaultFormat,
			Channels:          audio.DefaultChannels,
			Player:            PlayerFFplay,
			PlaybackQueueSize: 32,
		},
		Speech:   SpeechConfig{Voice: "aura-athena-en"},
		LogLevel: "info",
	}
}

// EnvPrefix prefixes the environment variable of every config key, with
// dots replaced by underscores: transcription.endpointing_ms is read from
// TALKINGAI_TRANSCRIPTION_ENDPOINTING_MS.
const EnvPrefix = "TALKINGAI"

// keyEnv names the variables the service keys are read from, in line with
// the services' own tooling.
var keyEnv = map[string]string{
	"api_keys.deepgram": "DEEPGRAM_API_KEY",
	"api_keys.groq":     "GROQ_API_KEY",
	"api_keys.openai":   "OPENAI_API_KEY",
}

// FlagKeys maps command line flags to the config keys they override.
var FlagKeys = map[string]string{
	"provider":  "llm.provider",
	"model":     "llm.model",
	"language":  "transcription.language",
	"player":    "audio.player",
	"voice":     "speech.voice",
	"log-level": "log_level",
}

// Load builds the configuration. An empty path skips the YAML file; an
// empty envFile reads .env if present. Flags named in FlagKeys override
// everything else when set on the command line; flags may be nil.
func Load(path, envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range keyEnv {
		if err := v.BindEnv(key, name); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key of defaults, so that each one can be
// overridden from the environment.
func setDefaults(v *viper.Viper, defaults Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if subtree, ok := value.(map[string]any); ok {
			setDefaultTree(v, key, subtree)
			continue
		}
		v.SetDefault(key, value)
	}
}

// EncodingInfo is the capture encoding, also used for device playback.
func (c *Config) EncodingInfo() audio.EncodingInfo {
	format, _ := audio.ParseFormat(c.Audio.Encoding)
	return audio.EncodingInfo{SampleRate: c.Audio.SampleRate, Format: format, Channels: c.Audio.Channels}
}
