package orchestration

import (
	"context"
	"iter"

	"github.com/koscakluka/talkingai/core/audio"
	"github.com/koscakluka/talkingai/core/events"
	"github.com/koscakluka/talkingai/core/llms"
	"github.com/koscakluka/talkingai/core/speechtotext"
)

const DefaultTerminationKeyword = "goodbye"

type OrchestratorOption func(*Orchestrator)

type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	StopStream() error
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) { o.speechToText = client }
}

type ResponseGenerator interface {
	Generate(ctx context.Context, utterance string, persona llms.Persona) (string, error)
}

func WithResponseGenerator(generator ResponseGenerator) OrchestratorOption {
	return func(o *Orchestrator) { o.generator = generator }
}

// TextToSpeech turns a reply into audio. The returned error means nothing was
// produced; an error from the sequence means the stream broke part way.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (iter.Seq2[[]byte, error], error)
}

func WithTextToSpeechClient(client TextToSpeech) OrchestratorOption {
	return func(o *Orchestrator) { o.textToSpeech = client }
}

func WithPlayer(player audio.Player) OrchestratorOption {
	return func(o *Orchestrator) { o.player = player }
}

// AudioInput captures microphone audio. Its lifetime belongs to the caller.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
}

// WithAudioInput forwards captured audio to the speech-to-text client. Without
// it audio has to be pushed with [Orchestrator.SendAudio].
func WithAudioInput(input AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput = input }
}

func WithPersona(persona llms.Persona) OrchestratorOption {
	return func(o *Orchestrator) { o.persona = persona }
}

// WithTerminationKeyword sets the phrase that ends the conversation. It is
// matched case-insensitively anywhere in an utterance; an empty keyword
// disables termination.
func WithTerminationKeyword(keyword string) OrchestratorOption {
	return func(o *Orchestrator) { o.terminationKeyword = keyword }
}

// WithFragmentSeparator sets the string placed between transcript fragments,
// e.g. "，" for Chinese transcripts.
func WithFragmentSeparator(separator string) OrchestratorOption {
	return func(o *Orchestrator) { o.separator = separator }
}

// WithDiscardWhileBusy drops utterances completed while a turn is in flight
// and stops forwarding captured audio until the turn is over, so the reply
// coming out of the speakers is not answered. It is on by default; turning it
// off queues those utterances and answers them in order.
func WithDiscardWhileBusy(discard bool) OrchestratorOption {
	return func(o *Orchestrator) { o.discardWhileBusy = discard }
}

func WithPlaybackQueueSize(size int) OrchestratorOption {
	return func(o *Orchestrator) { o.playbackQueueSize = size }
}

// WithTranscriptionOptions passes options through to the speech-to-text
// client, e.g. endpointing or language.
func WithTranscriptionOptions(opts ...speechtotext.TranscriptionOption) OrchestratorOption {
	return func(o *Orchestrator) { o.transcriptionOptions = append(o.transcriptionOptions, opts...) }
}

type OrchestrateOptions struct {
	onEvent         events.Handler
	onTranscription func(transcript string)
	onResponse      func(response string)
	onStateChanged  func(state ConversationState)
	onError         func(err error)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventHandler receives every event. Handlers are never called
// concurrently.
func WithEventHandler(handler events.Handler) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onEvent = handler }
}

func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscription = callback }
}

func WithResponseCallback(callback func(response string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onResponse = callback }
}

func WithStateChangedCallback(callback func(state ConversationState)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onStateChanged = callback }
}

// WithErrorCallback receives turn failures and transcript source errors.
func WithErrorCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onError = callback }
}
