package ffplay

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/koscakluka/talkingai/core/audio"
)

func TestOpenReportsMissingPlayerAsUnavailable(t *testing.T) {
	player := NewPlayer(WithCommand("talkingai-definitely-not-a-player"))

	if player.IsInstalled() {
		t.Fatalf("expected missing binary to be reported as not installed")
	}

	stream, err := player.Open(context.Background())
	if stream != nil {
		t.Fatalf("expected no stream for a missing player")
	}
	if !errors.Is(err, audio.ErrPlayerUnavailable) {
		t.Fatalf("expected ErrPlayerUnavailable, got %v", err)
	}
}

func TestStreamCloseWaitsForProcessExit(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	player := NewPlayer(WithCommand("cat"))
	playback, err := player.Open(context.Background())
	if err != nil {
		t.Fatalf("expected cat to open, got %v", err)
	}

	for _, chunk := range [][]byte{[]byte("c1"), []byte("c2"), []byte("c3")} {
		if _, err := playback.Write(chunk); err != nil {
			t.Fatalf("expected write to succeed, got %v", err)
		}
	}

	if err := playback.Close(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}

	ps := playback.(*stream).cmd.ProcessState
	if ps == nil || !ps.Exited() {
		t.Fatalf("expected player process to have exited after Close")
	}

	if err := playback.Close(); err != nil {
		t.Fatalf("expected repeated close to return the first result, got %v", err)
	}
}

func TestWithRawInputDescribesEncoding(t *testing.T) {
	player := NewPlayer(WithRawInput(audio.EncodingInfo{SampleRate: 24000, Format: audio.EncodingLinear16, Channels: 1}))

	want := []string{"-autoexit", "-nodisp", "-loglevel", "quiet", "-f", "s16le", "-ar", "24000", "-ch_layout", "mono", "-"}
	if len(player.args) != len(want) {
		t.Fatalf("expected %d args, got %v", len(want), player.args)
	}
	for i := range want {
		if player.args[i] != want[i] {
			t.Fatalf("expected arg %d to be %q, got %q", i, want[i], player.args[i])
		}
	}
}
