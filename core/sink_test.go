package orchestration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/koscakluka/talkingai/core/audio"
)

func TestSinkWritesInOrderAndCloseWaitsForDrain(t *testing.T) {
	player := &memoryPlayer{writeDelay: 10 * time.Millisecond, drainDelay: 20 * time.Millisecond}
	sink := NewAudioPlaybackSink(player, 8)

	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, chunk := range []string{"c1", "c2", "c3"} {
		if err := sink.Write(context.Background(), []byte(chunk)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"open", "write:c1", "write:c2", "write:c3", "close"}
	got := player.recorded()
	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	if sink.Written() != 6 {
		t.Fatalf("expected 6 bytes written, got %d", sink.Written())
	}
}

func TestSinkWriteBlocksWhenQueueIsFull(t *testing.T) {
	release := make(chan struct{})
	player := &blockingPlayer{release: release}
	sink := NewAudioPlaybackSink(player, 1)
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first chunk is taken by the device, the second fills the queue.
	if err := sink.Write(context.Background(), []byte("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-player.writing
	if err := sink.Write(context.Background(), []byte("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- sink.Write(context.Background(), []byte("c")) }()

	select {
	case <-blocked:
		t.Fatalf("expected write to block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for blocked write")
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSinkStopsForwardingAfterDeviceFailure(t *testing.T) {
	player := &memoryPlayer{failOnWrite: 2}
	sink := NewAudioPlaybackSink(player, 8)
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var writeErr error
	for _, chunk := range []string{"c1", "c2", "c3"} {
		if err := sink.Write(context.Background(), []byte(chunk)); err != nil {
			writeErr = err
			break
		}
	}
	closeErr := sink.Close()

	if !errors.Is(errors.Join(writeErr, closeErr), ErrPlaybackFailed) {
		t.Fatalf("expected ErrPlaybackFailed, got write=%v close=%v", writeErr, closeErr)
	}
	if !errors.Is(closeErr, errDeviceGone) {
		t.Fatalf("expected close to report the device error, got %v", closeErr)
	}
	for _, call := range player.recorded() {
		if call == "write:c3" {
			t.Fatalf("expected chunk 3 never to reach the device, got %v", player.recorded())
		}
	}
	if sink.Written() != len("c1") {
		t.Fatalf("expected only the delivered chunk to be counted, got %d bytes", sink.Written())
	}
}

func TestSinkWrittenCountsOnlyPlayedChunks(t *testing.T) {
	gate := make(chan struct{})
	player := &memoryPlayer{writeGate: gate}
	sink := NewAudioPlaybackSink(player, 8)
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, chunk := range []string{"abc", "de"} {
		if err := sink.Write(context.Background(), []byte(chunk)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if sink.Written() != 0 {
		t.Fatalf("expected queued chunks not to be counted, got %d bytes", sink.Written())
	}

	close(gate)
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sink.Written() != 5 {
		t.Fatalf("expected 5 bytes written, got %d", sink.Written())
	}
}

func TestSinkOpenReportsUnavailablePlayer(t *testing.T) {
	player := &memoryPlayer{openErr: fmt.Errorf("ffplay not found: %w", audio.ErrPlayerUnavailable)}
	sink := NewAudioPlaybackSink(player, 0)

	err := sink.Open(context.Background())
	if !errors.Is(err, ErrPlaybackUnavailable) {
		t.Fatalf("expected ErrPlaybackUnavailable, got %v", err)
	}
	if !errors.Is(err, audio.ErrPlayerUnavailable) {
		t.Fatalf("expected the player error to be kept, got %v", err)
	}
	if err := sink.Write(context.Background(), []byte("x")); !errors.Is(err, ErrPlaybackUnavailable) {
		t.Fatalf("expected write on unopened sink to fail, got %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("expected close on unopened sink to be a no-op, got %v", err)
	}
}

func TestSinkWriteHonoursContext(t *testing.T) {
	player := &blockingPlayer{release: make(chan struct{})}
	defer close(player.release)
	sink := NewAudioPlaybackSink(player, 1)
	if err := sink.Open(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink.Write(context.Background(), []byte("a"))
	<-player.writing
	sink.Write(context.Background(), []byte("b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Write(ctx, []byte("c")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// blockingPlayer holds every write until release is closed.
type blockingPlayer struct {
	release chan struct{}
	writing chan struct{}
}

func (p *blockingPlayer) Open(context.Context) (audio.PlaybackStream, error) {
	p.writing = make(chan struct{}, 16)
	return p, nil
}

func (p *blockingPlayer) Write(chunk []byte) (int, error) {
	p.writing <- struct{}{}
	<-p.release
	return len(chunk), nil
}

func (p *blockingPlayer) Close() error { return nil }
