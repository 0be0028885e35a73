package orchestration

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/talkingai/core/audio"
	"github.com/koscakluka/talkingai/core/events"
	"github.com/koscakluka/talkingai/core/llms"
	"github.com/koscakluka/talkingai/core/speechtotext"
)

type stubSpeechToText struct {
	transcribeErr error

	mu      sync.Mutex
	options speechtotext.TranscriptionOptions
	started chan struct{}

	stopped atomic.Int32
	audio   atomic.Int32
}

func newStubSpeechToText() *stubSpeechToText {
	return &stubSpeechToText{started: make(chan struct{})}
}

func (s *stubSpeechToText) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	if s.transcribeErr != nil {
		return s.transcribeErr
	}
	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}
	s.mu.Lock()
	s.options = options
	s.mu.Unlock()
	close(s.started)
	return nil
}

func (s *stubSpeechToText) SendAudio([]byte) error {
	s.audio.Add(1)
	return nil
}

func (s *stubSpeechToText) StopStream() error {
	s.stopped.Add(1)
	return nil
}

func (s *stubSpeechToText) say(t *testing.T, fragments ...speechtotext.Fragment) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for transcription to start")
	}
	s.mu.Lock()
	callback := s.options.FragmentCallback
	s.mu.Unlock()
	for _, fragment := range fragments {
		callback(fragment)
	}
}

func (s *stubSpeechToText) sayUtterance(t *testing.T, text string) {
	t.Helper()
	s.say(t, speechtotext.Fragment{Text: text, IsFinal: true})
}

type stubGenerator struct {
	reply func(ctx context.Context, utterance string) (string, error)

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32

	mu         sync.Mutex
	utterances []string
	personas   []llms.Persona
}

func (g *stubGenerator) Generate(ctx context.Context, utterance string, persona llms.Persona) (string, error) {
	g.calls.Add(1)
	active := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		current := g.maxActive.Load()
		if active <= current || g.maxActive.CompareAndSwap(current, active) {
			break
		}
	}

	g.mu.Lock()
	g.utterances = append(g.utterances, utterance)
	g.personas = append(g.personas, persona)
	g.mu.Unlock()

	if g.reply == nil {
		return "reply to " + utterance, nil
	}
	return g.reply(ctx, utterance)
}

type stubTextToSpeech struct {
	chunks     []string
	startErr   error
	midErr     error
	midErrFrom int

	calls atomic.Int32
}

func (s *stubTextToSpeech) Synthesize(_ context.Context, _ string) (iter.Seq2[[]byte, error], error) {
	s.calls.Add(1)
	if s.startErr != nil {
		return nil, s.startErr
	}
	chunks := s.chunks
	if chunks == nil {
		chunks = []string{"c1", "c2", "c3"}
	}
	return func(yield func([]byte, error) bool) {
		for i, chunk := range chunks {
			if s.midErr != nil && i == s.midErrFrom {
				yield(nil, s.midErr)
				return
			}
			if !yield([]byte(chunk), nil) {
				return
			}
		}
	}, nil
}

// memoryPlayer records what reaches the device. Close waits drainDelay
// before recording, like a device finishing its buffer.
type memoryPlayer struct {
	// writeGate, when set, holds every write until it is closed.
	writeGate   chan struct{}
	openErr     error
	failOnWrite int
	writeDelay  time.Duration
	drainDelay  time.Duration

	opens      atomic.Int32
	openNow    atomic.Int32
	maxOpenNow atomic.Int32

	mu    sync.Mutex
	calls []string
}

var errDeviceGone = errors.New("device gone")

func (p *memoryPlayer) Open(context.Context) (audio.PlaybackStream, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opens.Add(1)
	if now := p.openNow.Add(1); now > p.maxOpenNow.Load() {
		p.maxOpenNow.Store(now)
	}
	p.record("open")
	return &memoryStream{player: p}, nil
}

func (p *memoryPlayer) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *memoryPlayer) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type memoryStream struct {
	player *memoryPlayer
	writes int
}

func (s *memoryStream) Write(chunk []byte) (int, error) {
	s.writes++
	if s.player.writeGate != nil {
		<-s.player.writeGate
	}
	time.Sleep(s.player.writeDelay)
	s.player.record("write:" + string(chunk))
	if s.player.failOnWrite == s.writes {
		return 0, errDeviceGone
	}
	return len(chunk), nil
}

func (s *memoryStream) Close() error {
	time.Sleep(s.player.drainDelay)
	s.player.record("close")
	s.player.openNow.Add(-1)
	return nil
}

type recordingHandler struct {
	mu     sync.Mutex
	events []events.Event
}

func (h *recordingHandler) handle(event events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) kinds() []events.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]events.Kind, 0, len(h.events))
	for _, event := range h.events {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}

func (h *recordingHandler) count(kind events.Kind) int {
	n := 0
	for _, k := range h.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (h *recordingHandler) turnFailures() []events.TurnFailed {
	h.mu.Lock()
	defer h.mu.Unlock()
	var failures []events.TurnFailed
	for _, event := range h.events {
		if failed, ok := event.(events.TurnFailed); ok {
			failures = append(failures, failed)
		}
	}
	return failures
}

func (h *recordingHandler) waitFor(t *testing.T, kind events.Kind, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for h.count(kind) < n {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d %q events, got %d", n, kind, h.count(kind))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type stubAudioInput struct {
	chunks int
}

func (a *stubAudioInput) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw, Channels: 1}
}

func (a *stubAudioInput) Stream(ctx context.Context, onAudio func([]byte)) error {
	for range a.chunks {
		onAudio([]byte{0xFF})
	}
	<-ctx.Done()
	return nil
}

// pushAudioInput delivers chunks on demand. push returns once the chunk has
// been handed to the orchestrator.
type pushAudioInput struct {
	stubAudioInput
	chunks chan []byte
	done   chan struct{}
}

func newPushAudioInput() *pushAudioInput {
	return &pushAudioInput{chunks: make(chan []byte), done: make(chan struct{})}
}

func (a *pushAudioInput) Stream(ctx context.Context, onAudio func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk := <-a.chunks:
			onAudio(chunk)
			a.done <- struct{}{}
		}
	}
}

func (a *pushAudioInput) push(t *testing.T, chunk []byte) {
	t.Helper()
	select {
	case a.chunks <- chunk:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out pushing audio")
	}
	<-a.done
}

type failingAudioInput struct{ stubAudioInput }

func (a *failingAudioInput) Stream(context.Context, func([]byte)) error {
	return errors.New("no microphone")
}

// runOrchestrator starts Orchestrate and returns a channel with its result.
func runOrchestrator(ctx context.Context, o *Orchestrator, opts ...OrchestrateOption) <-chan error {
	result := make(chan error, 1)
	go func() { result <- o.Orchestrate(ctx, opts...) }()
	return result
}

func awaitResult(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for orchestrate to return")
		return nil
	}
}
