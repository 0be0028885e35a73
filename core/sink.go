package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/talkingai/core/audio"
)

const DefaultPlaybackQueueSize = 32

// AudioPlaybackSink forwards one turn's audio to a player in order. Writes
// queue up to a fixed number of chunks and then block until the player
// catches up.
type AudioPlaybackSink struct {
	player    audio.Player
	queueSize int

	stream  audio.PlaybackStream
	queue   chan []byte
	done    chan struct{}
	failed  chan struct{}
	written atomic.Int64

	mu  sync.Mutex
	err error
}

func NewAudioPlaybackSink(player audio.Player, queueSize int) *AudioPlaybackSink {
	if queueSize <= 0 {
		queueSize = DefaultPlaybackQueueSize
	}
	return &AudioPlaybackSink{player: player, queueSize: queueSize}
}

// Open acquires the player. A missing device or program is reported here,
// before any audio is requested.
func (s *AudioPlaybackSink) Open(ctx context.Context) error {
	if s.stream != nil {
		return fmt.Errorf("playback sink already open")
	}
	if s.player == nil {
		return fmt.Errorf("%w: no player configured", ErrPlaybackUnavailable)
	}

	stream, err := s.player.Open(ctx)
	if err != nil {
		return wrapStageError(ErrPlaybackUnavailable, err)
	}

	s.stream = stream
	s.queue = make(chan []byte, s.queueSize)
	s.done = make(chan struct{})
	s.failed = make(chan struct{})
	s.written.Store(0)
	s.err = nil

	go s.forward(stream, s.queue, s.done, s.failed)
	return nil
}

func (s *AudioPlaybackSink) forward(stream audio.PlaybackStream, queue <-chan []byte, done, failed chan struct{}) {
	defer close(done)
	for chunk := range queue {
		n, err := stream.Write(chunk)
		s.written.Add(int64(n))
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			close(failed)
			return
		}
	}
}

// Write queues chunk for playback. It blocks while the queue is full and
// fails with ErrPlaybackFailed once the player has failed.
func (s *AudioPlaybackSink) Write(ctx context.Context, chunk []byte) error {
	if s.stream == nil {
		return fmt.Errorf("%w: playback sink not open", ErrPlaybackUnavailable)
	}
	if len(chunk) == 0 {
		return nil
	}

	select {
	case <-s.failed:
		return s.failure()
	default:
	}

	select {
	case s.queue <- slices.Clone(chunk):
		return nil
	case <-s.failed:
		return s.failure()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream and waits until the player has drained it.
func (s *AudioPlaybackSink) Close() error {
	if s.stream == nil {
		return nil
	}

	close(s.queue)
	<-s.done
	closeErr := s.stream.Close()
	s.stream = nil

	var errs []error
	s.mu.Lock()
	if s.err != nil {
		errs = append(errs, wrapStageError(ErrPlaybackFailed, s.err))
	}
	s.mu.Unlock()
	if closeErr != nil {
		errs = append(errs, wrapStageError(ErrPlaybackFailed, closeErr))
	}
	return errors.Join(errs...)
}

// Written is the number of bytes the player has taken since Open. Chunks
// still queued or dropped after a failure are not counted.
func (s *AudioPlaybackSink) Written() int {
	return int(s.written.Load())
}

func (s *AudioPlaybackSink) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wrapStageError(ErrPlaybackFailed, s.err)
}
