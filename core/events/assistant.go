package events

const (
	// KindAssistantResponseFinal identifies the generated reply text.
	KindAssistantResponseFinal Kind = "assistant_response.final"
	// KindAssistantPlaybackStarted identifies playback start for the current response.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackEnded identifies the playback completion milestone.
	KindAssistantPlaybackEnded Kind = "assistant_playback.ended"
)

// AssistantResponseFinal carries the complete reply for a turn.
type AssistantResponseFinal struct {
	Base
	TurnID   string
	Response string
}

// NewAssistantResponseFinal creates an assistant response final event.
func NewAssistantResponseFinal(turnID, response string) AssistantResponseFinal {
	return AssistantResponseFinal{Base: NewBase(KindAssistantResponseFinal), TurnID: turnID, Response: response}
}

// AssistantPlaybackStarted marks the playback stream being opened.
type AssistantPlaybackStarted struct {
	Base
	TurnID string
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(turnID string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), TurnID: turnID}
}

// AssistantPlaybackEnded marks the playback stream being drained and closed.
type AssistantPlaybackEnded struct {
	Base
	TurnID string
	// Bytes is how much audio was handed to the player.
	Bytes int
}

// NewAssistantPlaybackEnded creates an assistant playback ended event.
func NewAssistantPlaybackEnded(turnID string, bytes int) AssistantPlaybackEnded {
	return AssistantPlaybackEnded{Base: NewBase(KindAssistantPlaybackEnded), TurnID: turnID, Bytes: bytes}
}
