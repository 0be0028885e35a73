package orchestration

import (
	"errors"
	"fmt"
)

var (
	// ErrTranscriptSource reports a failure of the speech-to-text stream.
	ErrTranscriptSource = errors.New("transcript source failed")
	// ErrGenerationFailed reports that no reply could be generated.
	ErrGenerationFailed = errors.New("response generation failed")
	// ErrPlaybackUnavailable reports that the player could not be opened.
	ErrPlaybackUnavailable = errors.New("playback unavailable")
	// ErrPlaybackFailed reports a player failure after playback started.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrSynthesisFailed reports that the reply could not be turned into
	// audio.
	ErrSynthesisFailed = errors.New("speech synthesis failed")

	ErrAlreadyStarted = errors.New("orchestrator already started")

	errTranscriptStreamClosed = errors.New("stream closed")
)

type TurnStage string

const (
	TurnStageGenerate   TurnStage = "generate"
	TurnStageSynthesize TurnStage = "synthesize"
	TurnStagePlayback   TurnStage = "playback"
)

// TurnError is a failure caught at the turn boundary. The conversation
// continues after it.
type TurnError struct {
	TurnID    string
	Stage     TurnStage
	Utterance string
	Err       error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %s failed during %s: %v", e.TurnID, e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

func wrapStageError(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
