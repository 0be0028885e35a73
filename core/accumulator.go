package orchestration

import "strings"

const DefaultFragmentSeparator = " "

// TranscriptAccumulator collects the fragments of one utterance. It is owned
// by a single goroutine and never shared.
type TranscriptAccumulator struct {
	separator string
	fragments []string
}

func NewTranscriptAccumulator(separator string) *TranscriptAccumulator {
	return &TranscriptAccumulator{separator: separator}
}

// Append adds a fragment. Empty fragments are kept.
func (a *TranscriptAccumulator) Append(fragment string) {
	a.fragments = append(a.fragments, fragment)
}

// Joined joins the fragments with the separator. Fragments are trimmed and
// blank ones skipped, so service padding never doubles the separator.
func (a *TranscriptAccumulator) Joined() string {
	parts := make([]string, 0, len(a.fragments))
	for _, fragment := range a.fragments {
		if trimmed := strings.TrimSpace(fragment); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, a.separator)
}

func (a *TranscriptAccumulator) Reset() {
	a.fragments = a.fragments[:0]
}

func (a *TranscriptAccumulator) Len() int {
	return len(a.fragments)
}
