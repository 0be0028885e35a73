package events

const (
	// KindUserSpeechStarted identifies start of user speech activity.
	KindUserSpeechStarted Kind = "user_input.speech_started"
	// KindUserTranscriptSegment identifies finalized append-only transcript segments.
	KindUserTranscriptSegment Kind = "user_input.transcript_segment"
	// KindUserTranscriptFinal identifies a completed utterance.
	KindUserTranscriptFinal Kind = "user_input.transcript_final"
	// KindUserUtteranceDropped identifies a finalized segment that did not
	// become a turn.
	KindUserUtteranceDropped Kind = "user_input.utterance_dropped"
	// KindUserTranscriptionFailed identifies an error reported by the
	// transcript source.
	KindUserTranscriptionFailed Kind = "user_input.transcription_failed"
)

// UserSpeechStarted marks when user speech activity starts.
type UserSpeechStarted struct{ Base }

// NewUserSpeechStarted creates a user speech started event.
func NewUserSpeechStarted() UserSpeechStarted {
	return UserSpeechStarted{Base: NewBase(KindUserSpeechStarted)}
}

// UserTranscriptSegment carries a finalized transcript segment that has not
// ended the utterance yet.
type UserTranscriptSegment struct {
	Base
	Segment string
}

// NewUserTranscriptSegment creates a finalized transcript segment event.
func NewUserTranscriptSegment(segment string) UserTranscriptSegment {
	return UserTranscriptSegment{Base: NewBase(KindUserTranscriptSegment), Segment: segment}
}

// UserTranscriptFinal carries a completed utterance.
type UserTranscriptFinal struct {
	Base
	UtteranceID string
	Transcript  string
}

// NewUserTranscriptFinal creates a final transcript event.
func NewUserTranscriptFinal(utteranceID, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), UtteranceID: utteranceID, Transcript: transcript}
}

type DropReason string

const (
	// DropReasonEmpty is a final fragment that closed an empty buffer.
	DropReasonEmpty DropReason = "empty"
	// DropReasonBusy is an utterance completed while a turn was in flight
	// and the orchestrator discards those.
	DropReasonBusy DropReason = "busy"
)

// UserUtteranceDropped marks a segment that was discarded.
type UserUtteranceDropped struct {
	Base
	Reason     DropReason
	Transcript string
}

// NewUserUtteranceDropped creates an utterance dropped event.
func NewUserUtteranceDropped(reason DropReason, transcript string) UserUtteranceDropped {
	return UserUtteranceDropped{Base: NewBase(KindUserUtteranceDropped), Reason: reason, Transcript: transcript}
}

// UserTranscriptionFailed carries a non-fatal transcript source error.
type UserTranscriptionFailed struct {
	Base
	Err error
}

// NewUserTranscriptionFailed creates a transcription failed event.
func NewUserTranscriptionFailed(err error) UserTranscriptionFailed {
	return UserTranscriptionFailed{Base: NewBase(KindUserTranscriptionFailed), Err: err}
}
