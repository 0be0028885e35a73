package audio

import (
	"context"
	"errors"
	"io"
)

// ErrPlayerUnavailable is returned by [Player.Open] when no playback device or
// program can be reached.
var ErrPlayerUnavailable = errors.New("audio player unavailable")

// Player hands out one playback stream per response. Implementations must
// report a missing device or binary from Open, before any audio is requested.
type Player interface {
	Open(ctx context.Context) (PlaybackStream, error)
}

// PlaybackStream receives audio in order. Write may block while the device
// catches up. Close ends the stream and returns only after everything written
// has been played.
type PlaybackStream interface {
	io.Writer
	Close() error
}

// Capture is a microphone-like source of raw audio.
type Capture interface {
	EncodingInfo() EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
