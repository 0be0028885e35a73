package orchestration

import (
	"sync"

	events "github.com/koscakluka/talkingai/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// stateChanged carries the typed state next to the public event so callbacks
// never parse state names.
type stateChanged struct {
	events.ConversationStateChanged
	to ConversationState
}

// newCallbackEventEmitter fans events out to the configured callbacks,
// one event at a time.
func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	var mu sync.Mutex
	return func(event events.Event) {
		mu.Lock()
		defer mu.Unlock()

		if changed, ok := event.(stateChanged); ok {
			if opts.onEvent != nil {
				opts.onEvent(changed.ConversationStateChanged)
			}
			if opts.onStateChanged != nil {
				opts.onStateChanged(changed.to)
			}
			return
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.AssistantResponseFinal:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Response)
			}
		case events.TurnFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.UserTranscriptionFailed:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		}
	}
}
