package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/talkingai/core"
	"github.com/koscakluka/talkingai/core/audio"
	"github.com/koscakluka/talkingai/core/audio/ffplay"
	"github.com/koscakluka/talkingai/core/audio/miniaudio"
	"github.com/koscakluka/talkingai/core/audio/portaudio"
	"github.com/koscakluka/talkingai/core/events"
	"github.com/koscakluka/talkingai/core/llms"
	"github.com/koscakluka/talkingai/core/llms/groq"
	"github.com/koscakluka/talkingai/core/llms/openai"
	"github.com/koscakluka/talkingai/core/speechtotext"
	deepgramstt "github.com/koscakluka/talkingai/core/speechtotext/deepgram"
	"github.com/koscakluka/talkingai/core/texttospeech"
	deepgramtts "github.com/koscakluka/talkingai/core/texttospeech/deepgram"
	"github.com/koscakluka/talkingai/internal/config"
)

const (
	portaudioFramesPerBuffer = 1024
	telemetryShutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a voice conversation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := setupTelemetry(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Telemetry: ")+err.Error())
			}
		}()

		return runConversation(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	runCmd.Flags().String("provider", "", "llm provider: groq or openai")
	runCmd.Flags().String("model", "", "llm model")
	runCmd.Flags().String("language", "", "transcription language, e.g. en-US")
	runCmd.Flags().String("player", "", "audio player: ffplay, miniaudio or portaudio")
	runCmd.Flags().String("voice", "", "speech voice")
}

type audioDevices struct {
	input  orchestration.AudioInput
	player audio.Player
	// raw is set when the player expects headerless audio in the capture
	// encoding.
	raw   bool
	close func()
}

func openAudio(cfg *config.Config) (*audioDevices, error) {
	encoding := cfg.EncodingInfo()

	switch cfg.Audio.Player {
	case config.PlayerMiniaudio:
		client, err := miniaudio.NewClient(miniaudio.WithEncodingInfo(encoding))
		if err != nil {
			return nil, err
		}
		return &audioDevices{input: client, player: client, raw: true, close: client.Close}, nil

	case config.PlayerPortaudio:
		client, err := portaudio.NewClient(portaudioFramesPerBuffer, encoding)
		if err != nil {
			return nil, err
		}
		return &audioDevices{input: client, player: client, raw: true, close: client.Close}, nil

	default:
		capture, err := miniaudio.NewClient(miniaudio.WithEncodingInfo(encoding), miniaudio.WithoutPlayback())
		if err != nil {
			return nil, err
		}
		return &audioDevices{input: capture, player: ffplay.NewPlayer(), close: capture.Close}, nil
	}
}

func newGenerator(cfg *config.Config) (orchestration.ResponseGenerator, error) {
	opts := []llms.GenerationOption{llms.WithTemperature(cfg.LLM.Temperature)}
	if cfg.LLM.Model != "" {
		opts = append(opts, llms.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, llms.WithBaseURL(cfg.LLM.BaseURL))
	}

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return openai.NewGenerator(cfg.APIKeys.OpenAI, opts...)
	default:
		return groq.NewGenerator(cfg.APIKeys.Groq, opts...)
	}
}

func runConversation(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	devices, err := openAudio(cfg)
	if err != nil {
		return fmt.Errorf("failed to open audio devices: %w", err)
	}
	defer devices.close()

	stt, err := deepgramstt.NewTranscriptionClient(deepgramstt.WithAPIKey(cfg.APIKeys.Deepgram))
	if err != nil {
		return err
	}
	defer stt.Close()

	synthesisOptions := []texttospeech.SynthesisOption{texttospeech.WithVoice(cfg.Speech.Voice)}
	if devices.raw {
		synthesisOptions = append(synthesisOptions, texttospeech.WithEncodingInfo(devices.input.EncodingInfo()))
	}
	tts, err := deepgramtts.NewSpeechSynthesizer(
		deepgramtts.WithAPIKey(cfg.APIKeys.Deepgram),
		deepgramtts.WithSynthesisOptions(synthesisOptions...),
	)
	if err != nil {
		return err
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	o := orchestration.NewOrchestrator(
		orchestration.WithSpeechToTextClient(stt),
		orchestration.WithResponseGenerator(generator),
		orchestration.WithTextToSpeechClient(tts),
		orchestration.WithPlayer(devices.player),
		orchestration.WithAudioInput(devices.input),
		orchestration.WithPersona(llms.Persona{
			Instructions: cfg.Persona.Instructions,
			WordLimit:    cfg.Persona.WordLimit,
		}),
		orchestration.WithTerminationKeyword(cfg.Conversation.TerminationKeyword),
		orchestration.WithFragmentSeparator(cfg.Conversation.FragmentSeparator),
		orchestration.WithDiscardWhileBusy(cfg.Conversation.DiscardWhileBusy),
		orchestration.WithPlaybackQueueSize(cfg.Audio.PlaybackQueueSize),
		orchestration.WithTranscriptionOptions(
			speechtotext.WithModel(cfg.Transcription.Model),
			speechtotext.WithLanguage(cfg.Transcription.Language),
			speechtotext.WithEndpointing(cfg.Transcription.EndpointingMs),
			speechtotext.WithUtteranceEnd(cfg.Transcription.UtteranceEndMs),
			speechtotext.WithSmartFormat(cfg.Transcription.SmartFormat),
		),
	)

	fmt.Fprintln(stdout, subtleStyle.Render(fmt.Sprintf("Listening. Say %q to stop.", cfg.Conversation.TerminationKeyword)))

	err = o.Orchestrate(ctx, orchestration.WithEventHandler(transcriptPrinter(stdout, stderr)))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// transcriptPrinter renders the conversation as it happens.
func transcriptPrinter(stdout, stderr io.Writer) events.Handler {
	return func(event events.Event) {
		switch e := event.(type) {
		case events.UserTranscriptFinal:
			printLine(stdout, humanStyle, "Human", e.Transcript)
		case events.AssistantResponseFinal:
			printLine(stdout, assistantStyle, "Assistant", e.Response)
		case events.UserUtteranceDropped:
			if e.Reason == events.DropReasonBusy {
				fmt.Fprintln(stdout, subtleStyle.Render("(ignored while busy: "+e.Transcript+")"))
			}
		case events.TurnFailed:
			fmt.Fprintln(stderr, errorStyle.Render("Turn failed: ")+e.Err.Error())
		case events.UserTranscriptionFailed:
			fmt.Fprintln(stderr, errorStyle.Render("Transcription error: ")+e.Err.Error())
		case events.ConversationTerminated:
			fmt.Fprintln(stdout, subtleStyle.Render("Goodbye."))
		}
	}
}
