// Package ffplay plays audio by piping it into an ffplay child process.
package ffplay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/koscakluka/talkingai/core/audio"
)

const defaultCommand = "ffplay"

var defaultArgs = []string{"-autoexit", "-nodisp", "-loglevel", "quiet", "-"}

type Player struct {
	command string
	args    []string
}

type PlayerOption func(*Player)

// WithCommand replaces the player binary and its arguments. The program must
// read audio from stdin and exit once stdin is closed and playback is done.
func WithCommand(command string, args ...string) PlayerOption {
	return func(p *Player) {
		p.command = command
		p.args = args
	}
}

// WithRawInput makes ffplay read headerless audio in the given encoding, which
// is needed when the synthesizer is asked for container-less output.
func WithRawInput(encoding audio.EncodingInfo) PlayerOption {
	return func(p *Player) {
		format := "s16le"
		switch encoding.Format {
		case audio.EncodingMulaw:
			format = "mulaw"
		case audio.EncodingALaw:
			format = "alaw"
		}
		p.args = []string{
			"-autoexit", "-nodisp", "-loglevel", "quiet",
			"-f", format,
			"-ar", fmt.Sprint(encoding.SampleRate),
			"-ch_layout", channelLayout(encoding.ChannelCount()),
			"-",
		}
	}
}

func channelLayout(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

func NewPlayer(opts ...PlayerOption) *Player {
	p := &Player{command: defaultCommand, args: defaultArgs}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsInstalled reports whether the player binary can be found on PATH.
func (p *Player) IsInstalled() bool {
	_, err := exec.LookPath(p.command)
	return err == nil
}

func (p *Player) Open(_ context.Context) (audio.PlaybackStream, error) {
	path, err := exec.LookPath(p.command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found, install it to stream audio: %w", audio.ErrPlayerUnavailable, p.command, err)
	}

	// Not bound to a context: a reply that started playing is heard to the end.
	cmd := exec.Command(path, p.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s stdin: %w", audio.ErrPlayerUnavailable, p.command, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", audio.ErrPlayerUnavailable, p.command, err)
	}

	return &stream{cmd: cmd, stdin: stdin}, nil
}

type stream struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	closeErr  error
}

// Write blocks once the pipe buffer is full, until the player reads more.
func (s *stream) Write(chunk []byte) (int, error) {
	n, err := s.stdin.Write(chunk)
	if err != nil {
		return n, fmt.Errorf("failed to write to player: %w", err)
	}
	return n, nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close player stdin: %w", err))
		}
		if err := s.cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("player exited with error: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
