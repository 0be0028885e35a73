package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/koscakluka/talkingai/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type turnOutcome string

const (
	turnOutcomeCompleted turnOutcome = "completed"
	turnOutcomeFailed    turnOutcome = "failed"
)

// processTurn answers one utterance. Failures end the turn, never the
// conversation.
func (o *Orchestrator) processTurn(ctx context.Context, utterance Utterance) {
	turnID := utterance.ID
	ctx, span := tracer.Start(ctx, "process turn", trace.WithAttributes(
		attribute.String("turn.id", turnID),
		attribute.Int("turn.utterance_length", len(utterance.Text)),
	))
	defer span.End()

	started := time.Now()
	o.setState(StateGenerating)
	o.emit(events.NewTurnStarted(turnID, utterance.Text))

	err := o.answer(ctx, turnID, utterance.Text)
	o.setState(StateListening)
	outcome := turnOutcomeCompleted
	if err != nil {
		outcome = turnOutcomeFailed
		recordSpanError(span, err)

		var turnErr *TurnError
		stage := ""
		if errors.As(err, &turnErr) {
			stage = string(turnErr.Stage)
		}
		logger.ErrorContext(ctx, "turn failed", "turn.id", turnID, "turn.stage", stage, "error", err)
		o.emit(events.NewTurnFailed(turnID, stage, err))
	} else {
		logger.InfoContext(ctx, "turn completed", "turn.id", turnID)
		o.emit(events.NewTurnCompleted(turnID, time.Since(started)))
	}

	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	turnCounter.Add(ctx, 1, attrs)
	turnDuration.Record(ctx, time.Since(started).Seconds(), attrs)
}

func (o *Orchestrator) answer(ctx context.Context, turnID, utterance string) error {
	fail := func(stage TurnStage, err error) error {
		return &TurnError{TurnID: turnID, Stage: stage, Utterance: utterance, Err: err}
	}

	reply, err := o.generate(ctx, utterance)
	if err != nil {
		return fail(TurnStageGenerate, wrapStageError(ErrGenerationFailed, err))
	}
	o.emit(events.NewAssistantResponseFinal(turnID, reply))

	o.setState(StateSpeaking)
	stage, err := o.speak(ctx, turnID, reply)
	if err != nil {
		return fail(stage, err)
	}
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, utterance string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate response")
	defer span.End()

	reply, err := o.generator.Generate(ctx, utterance, o.persona)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}
	if reply == "" {
		err := errors.New("empty reply")
		recordSpanError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.Int("response.length", len(reply)))
	return reply, nil
}

// speak plays reply. The sink is opened before synthesis so a missing player
// costs no speech request.
func (o *Orchestrator) speak(ctx context.Context, turnID, reply string) (stage TurnStage, err error) {
	ctx, span := tracer.Start(ctx, "play response")
	defer func() {
		if err != nil {
			recordSpanError(span, err)
		}
		span.End()
	}()

	sink := NewAudioPlaybackSink(o.player, o.playbackQueueSize)
	if err := sink.Open(ctx); err != nil {
		return TurnStagePlayback, err
	}
	o.emit(events.NewAssistantPlaybackStarted(turnID))
	defer func() {
		closeErr := sink.Close()
		span.SetAttributes(attribute.Int("playback.bytes", sink.Written()))
		o.emit(events.NewAssistantPlaybackEnded(turnID, sink.Written()))
		if closeErr != nil {
			if err == nil {
				stage = TurnStagePlayback
			}
			err = errors.Join(err, closeErr)
		}
	}()

	chunks, err := o.textToSpeech.Synthesize(ctx, reply)
	if err != nil {
		return TurnStageSynthesize, wrapStageError(ErrSynthesisFailed, err)
	}

	for chunk, err := range chunks {
		if err != nil {
			return TurnStageSynthesize, wrapStageError(ErrSynthesisFailed, err)
		}
		if err := sink.Write(ctx, chunk); err != nil {
			return TurnStagePlayback, err
		}
	}
	return "", nil
}
