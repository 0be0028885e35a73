package orchestration

// ConversationState is the position of the turn loop. Only the loop
// goroutine changes it.
type ConversationState int

const (
	StateListening ConversationState = iota
	StateGenerating
	StateSpeaking
	StateTerminated
)

func (s ConversationState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateGenerating:
		return "generating"
	case StateSpeaking:
		return "speaking"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}
