// Package events defines the typed events the conversation emits.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_playback.*
//   - turn_state.*
//   - conversation.*
//
// Semantics used across the package:
//
//   - Segment: append-only text piece emitted in stream order.
//   - Final: terminal immutable text for the current utterance or reply.
//   - Started/Ended: lifecycle boundaries.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserTranscriptSegment (user_input.transcript_segment): finalized,
//     append-only transcript segment.
//   - UserTranscriptFinal (user_input.transcript_final): completed utterance.
//   - UserUtteranceDropped (user_input.utterance_dropped): a finalized segment
//     was empty, or arrived while busy and was discarded.
//   - UserTranscriptionFailed (user_input.transcription_failed): the
//     transcript source reported an error.
//
// assistant_response events
//
//   - AssistantResponseFinal (assistant_response.final): the generated reply.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): the playback
//     stream was opened for the turn.
//   - AssistantPlaybackEnded (assistant_playback.ended): the playback stream
//     drained and closed.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a turn began for an utterance.
//   - TurnCompleted (turn_state.completed): the reply was fully played.
//   - TurnFailed (turn_state.failed): the turn was abandoned after an error.
//
// conversation events
//
//   - ConversationStateChanged (conversation.state_changed): transition
//     between Listening, Generating, Speaking and Terminated.
//   - ConversationTerminated (conversation.terminated): the termination
//     keyword was heard.
package events
