package speechtotext

// Fragment is one piece of transcribed text for the utterance currently being
// spoken. IsFinal marks the end of that utterance; a final fragment may carry
// text of its own or be empty when the boundary came from silence alone.
type Fragment struct {
	Text    string
	IsFinal bool
}
