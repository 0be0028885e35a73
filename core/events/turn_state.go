package events

import "time"

const (
	// KindTurnStarted identifies the start of a turn for a completed utterance.
	KindTurnStarted Kind = "turn_state.started"
	// KindTurnCompleted identifies a turn whose reply was fully played.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies a turn abandoned after an error.
	KindTurnFailed Kind = "turn_state.failed"
)

// TurnStarted marks the start of a turn.
type TurnStarted struct {
	Base
	TurnID    string
	Utterance string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID, utterance string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Utterance: utterance}
}

// TurnCompleted marks a successful turn.
type TurnCompleted struct {
	Base
	TurnID   string
	Duration time.Duration
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(turnID string, duration time.Duration) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID, Duration: duration}
}

// TurnFailed marks a failed turn. Err wraps the stage sentinel.
type TurnFailed struct {
	Base
	TurnID string
	Stage  string
	Err    error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID, stage string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Stage: stage, Err: err}
}
