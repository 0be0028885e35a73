package orchestration

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/talkingai/core/events"
	"github.com/koscakluka/talkingai/core/speechtotext"
)

// Utterance is one complete, trimmed, non-empty human statement.
type Utterance struct {
	ID          string
	Text        string
	CompletedAt time.Time
}

// UtteranceCollector turns the fragment sequence into utterances. Every
// fragment is appended; a final fragment closes the buffer and yields an
// utterance unless the joined text is blank.
type UtteranceCollector struct {
	accumulator *TranscriptAccumulator
	emit        eventEmitter
	// admit, when set, decides whether Run passes a completed utterance on.
	admit func(Utterance) bool
}

func NewUtteranceCollector(separator string) *UtteranceCollector {
	return newUtteranceCollector(separator, noopEventEmitter)
}

func newUtteranceCollector(separator string, emit eventEmitter) *UtteranceCollector {
	return &UtteranceCollector{
		accumulator: NewTranscriptAccumulator(separator),
		emit:        emit,
	}
}

// Collect handles one fragment and reports whether it completed an
// utterance.
func (c *UtteranceCollector) Collect(fragment speechtotext.Fragment) (Utterance, bool) {
	c.accumulator.Append(fragment.Text)
	if !fragment.IsFinal {
		if fragment.Text != "" {
			c.emit(events.NewUserTranscriptSegment(fragment.Text))
		}
		return Utterance{}, false
	}

	text := strings.TrimSpace(c.accumulator.Joined())
	c.accumulator.Reset()
	if text == "" {
		c.emit(events.NewUserUtteranceDropped(events.DropReasonEmpty, ""))
		return Utterance{}, false
	}

	utterance := Utterance{ID: uuid.NewString(), Text: text, CompletedAt: time.Now()}
	c.emit(events.NewUserTranscriptFinal(utterance.ID, utterance.Text))
	return utterance, true
}

// Run consumes fragments in arrival order until the channel closes or ctx is
// done, sending completed utterances to out.
func (c *UtteranceCollector) Run(ctx context.Context, fragments <-chan speechtotext.Fragment, out chan<- Utterance) {
	for {
		select {
		case <-ctx.Done():
			return
		case fragment, ok := <-fragments:
			if !ok {
				return
			}
			utterance, completed := c.Collect(fragment)
			if !completed || (c.admit != nil && !c.admit(utterance)) {
				continue
			}
			select {
			case out <- utterance:
			case <-ctx.Done():
				return
			}
		}
	}
}
