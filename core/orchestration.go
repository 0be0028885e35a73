package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/talkingai/core/audio"
	"github.com/koscakluka/talkingai/core/events"
	"github.com/koscakluka/talkingai/core/llms"
	"github.com/koscakluka/talkingai/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fragmentQueueCapacity  = 64
	utteranceQueueCapacity = 10
)

// Orchestrator runs one spoken conversation: it listens for a complete
// utterance, answers it out loud and listens again, one turn at a time,
// until the termination keyword is heard.
type Orchestrator struct {
	speechToText SpeechToText
	generator    ResponseGenerator
	textToSpeech TextToSpeech
	player       audio.Player
	audioInput   AudioInput

	persona              llms.Persona
	terminationKeyword   string
	separator            string
	discardWhileBusy     bool
	playbackQueueSize    int
	transcriptionOptions []speechtotext.TranscriptionOption

	started atomic.Bool
	state   atomic.Int32
	emit    eventEmitter
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		persona:            llms.DefaultPersona(),
		terminationKeyword: DefaultTerminationKeyword,
		separator:          DefaultFragmentSeparator,
		playbackQueueSize:  DefaultPlaybackQueueSize,
		discardWhileBusy:   true,
		emit:               noopEventEmitter,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current conversation state.
func (o *Orchestrator) State() ConversationState {
	return ConversationState(o.state.Load())
}

// SendAudio forwards audio captured by the caller to the speech-to-text
// client.
func (o *Orchestrator) SendAudio(audio []byte) error {
	if o.speechToText == nil {
		return fmt.Errorf("%w: no speech-to-text client configured", ErrTranscriptSource)
	}
	return o.speechToText.SendAudio(audio)
}

// Orchestrate runs the conversation until the termination keyword is heard,
// which returns nil, or ctx is cancelled, which returns the context error.
// Failed turns are reported and the conversation continues. An error is also
// returned when transcription or audio capture cannot start, and when the
// transcription stream ends for good.
//
// Orchestrate can be called once per orchestrator.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) error {
	if err := o.validate(); err != nil {
		return err
	}
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	o.emit = newCallbackEventEmitter(options)

	ctx, span := tracer.Start(ctx, "orchestrate conversation")
	defer span.End()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	streamEnded := make(chan error, 1)
	fragments := make(chan speechtotext.Fragment, fragmentQueueCapacity)
	utterances := make(chan Utterance, utteranceQueueCapacity)

	collector := newUtteranceCollector(o.separator, o.collectorEmitter(runCtx))
	collector.admit = o.admitUtterance(runCtx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		collector.Run(runCtx, fragments, utterances)
	}()

	transcriptionOpts := append([]speechtotext.TranscriptionOption{}, o.transcriptionOptions...)
	if o.audioInput != nil {
		transcriptionOpts = append(transcriptionOpts, speechtotext.WithEncodingInfo(o.audioInput.EncodingInfo()))
	}
	transcriptionOpts = append(transcriptionOpts,
		speechtotext.WithFragmentCallback(func(fragment speechtotext.Fragment) {
			select {
			case fragments <- fragment:
			case <-runCtx.Done():
			}
		}),
		speechtotext.WithErrorCallback(func(err error) {
			err = wrapStageError(ErrTranscriptSource, err)
			logger.ErrorContext(runCtx, "transcript source error", "error", err)
			o.emit(events.NewUserTranscriptionFailed(err))
		}),
		speechtotext.WithSpeechStartedCallback(func() { o.emit(events.NewUserSpeechStarted()) }),
		speechtotext.WithStreamEndedCallback(func(err error) {
			select {
			case streamEnded <- err:
			default:
			}
		}),
	)

	if err := o.speechToText.Transcribe(runCtx, transcriptionOpts...); err != nil {
		err = fmt.Errorf("failed to start transcription: %w", wrapStageError(ErrTranscriptSource, err))
		recordSpanError(span, err)
		return err
	}
	defer func() {
		if err := o.speechToText.StopStream(); err != nil {
			logger.Warn("failed to stop transcription", "error", err)
		}
	}()

	inputFailed := make(chan error, 1)
	if o.audioInput != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.captureAudio(runCtx); err != nil {
				inputFailed <- err
			}
		}()
	}

	o.setState(StateListening)
	logger.InfoContext(ctx, "conversation started", "termination_keyword", o.terminationKeyword)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-streamEnded:
			if err == nil {
				err = errTranscriptStreamClosed
			}
			err = fmt.Errorf("transcription stream ended: %w", wrapStageError(ErrTranscriptSource, err))
			recordSpanError(span, err)
			return err

		case err := <-inputFailed:
			err = fmt.Errorf("audio input failed: %w", err)
			recordSpanError(span, err)
			return err

		case utterance := <-utterances:
			if o.isTermination(utterance.Text) {
				logger.InfoContext(ctx, "termination keyword heard", "utterance.id", utterance.ID)
				o.setState(StateTerminated)
				o.emit(events.NewConversationTerminated(utterance.Text))
				return nil
			}

			o.processTurn(ctx, utterance)
		}
	}
}

func (o *Orchestrator) validate() error {
	var errs []error
	if o.speechToText == nil {
		errs = append(errs, errors.New("no speech-to-text client configured"))
	}
	if o.generator == nil {
		errs = append(errs, errors.New("no response generator configured"))
	}
	if o.textToSpeech == nil {
		errs = append(errs, errors.New("no text-to-speech client configured"))
	}
	if o.player == nil {
		errs = append(errs, errors.New("no player configured"))
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) captureAudio(ctx context.Context) error {
	err := o.audioInput.Stream(ctx, func(audio []byte) {
		// The assistant's own voice is not transcribed.
		if o.discardWhileBusy && o.State() != StateListening {
			return
		}
		if err := o.speechToText.SendAudio(audio); err != nil {
			logger.DebugContext(ctx, "dropped captured audio", "error", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// collectorEmitter counts drops on top of emitting.
func (o *Orchestrator) collectorEmitter(ctx context.Context) eventEmitter {
	return func(event events.Event) {
		if dropped, ok := event.(events.UserUtteranceDropped); ok {
			droppedUtterances.Add(ctx, 1)
			logger.DebugContext(ctx, "utterance dropped", "reason", string(dropped.Reason))
		}
		o.emit(event)
	}
}

// admitUtterance drops utterances completed while a turn is in flight when
// discarding is on. The termination keyword is always let through.
func (o *Orchestrator) admitUtterance(ctx context.Context) func(Utterance) bool {
	return func(utterance Utterance) bool {
		if !o.discardWhileBusy || o.State() == StateListening || o.isTermination(utterance.Text) {
			return true
		}
		droppedUtterances.Add(ctx, 1)
		logger.InfoContext(ctx, "discarding utterance heard while busy", "utterance.id", utterance.ID, "state", o.State().String())
		o.emit(events.NewUserUtteranceDropped(events.DropReasonBusy, utterance.Text))
		return false
	}
}

func (o *Orchestrator) isTermination(utterance string) bool {
	if o.terminationKeyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(utterance), strings.ToLower(o.terminationKeyword))
}

func (o *Orchestrator) setState(state ConversationState) {
	previous := ConversationState(o.state.Swap(int32(state)))
	if previous == state {
		return
	}
	o.emit(stateChanged{
		ConversationStateChanged: events.NewConversationStateChanged(previous.String(), state.String()),
		to:                       state,
	})
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
