package events

const (
	// KindConversationStateChanged identifies a state machine transition.
	KindConversationStateChanged Kind = "conversation.state_changed"
	// KindConversationTerminated identifies the end of the conversation.
	KindConversationTerminated Kind = "conversation.terminated"
)

// ConversationStateChanged carries a transition between conversation states.
type ConversationStateChanged struct {
	Base
	From string
	To   string
}

// NewConversationStateChanged creates a state changed event.
func NewConversationStateChanged(from, to string) ConversationStateChanged {
	return ConversationStateChanged{Base: NewBase(KindConversationStateChanged), From: from, To: to}
}

// ConversationTerminated marks the end of the conversation. Utterance is the
// one that carried the termination keyword.
type ConversationTerminated struct {
	Base
	Utterance string
}

// NewConversationTerminated creates a conversation terminated event.
func NewConversationTerminated(utterance string) ConversationTerminated {
	return ConversationTerminated{Base: NewBase(KindConversationTerminated), Utterance: utterance}
}
