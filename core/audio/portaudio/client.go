package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/talkingai/core/audio"
)

type Client struct {
	bufferSize   int
	encodingInfo audio.EncodingInfo

	mu     sync.Mutex
	closed bool
}

// NewClient initializes PortAudio. bufferSize is the number of frames moved
// per blocking read or write.
func NewClient(bufferSize int, encodingInfo audio.EncodingInfo) (*Client, error) {
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}
	if encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported encoding %s, only linear16 is supported", encodingInfo)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Client{bufferSize: bufferSize, encodingInfo: encodingInfo}, nil
}

// Stream captures microphone audio until ctx is done.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	channels := c.encodingInfo.ChannelCount()
	in := make([]int16, c.bufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(c.encodingInfo.SampleRate), c.bufferSize, in)
	if err != nil {
		return fmt.Errorf("failed to open portaudio input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio input stream: %w", err)
	}
	defer stream.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return fmt.Errorf("failed to read from portaudio stream: %w", err)
		}

		audioBuffer := bytes.Buffer{}
		if err := binary.Write(&audioBuffer, binary.LittleEndian, in); err != nil {
			return fmt.Errorf("failed to encode captured audio: %w", err)
		}
		onAudio(audioBuffer.Bytes())
	}
}

// Open opens a blocking output stream for one response.
func (c *Client) Open(context.Context) (audio.PlaybackStream, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: portaudio client closed", audio.ErrPlayerUnavailable)
	}

	channels := c.encodingInfo.ChannelCount()
	out := make([]int16, c.bufferSize*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(c.encodingInfo.SampleRate), c.bufferSize, out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open portaudio output stream: %w", audio.ErrPlayerUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: failed to start portaudio output stream: %w", audio.ErrPlayerUnavailable, err)
	}

	return &playbackStream{stream: stream, out: out}, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

type playbackStream struct {
	stream   *portaudio.Stream
	out      []int16
	leftover []byte

	closeOnce sync.Once
	closeErr  error
}

// Write blocks in stream.Write until the device has room for each buffer.
func (s *playbackStream) Write(p []byte) (int, error) {
	s.leftover = append(s.leftover, p...)
	blockSize := len(s.out) * 2

	for len(s.leftover) >= blockSize {
		if err := s.writeBlock(s.leftover[:blockSize]); err != nil {
			return len(p), err
		}
		s.leftover = s.leftover[blockSize:]
	}
	return len(p), nil
}

func (s *playbackStream) writeBlock(block []byte) error {
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, s.out); err != nil {
		return fmt.Errorf("failed to decode playback audio: %w", err)
	}
	if err := s.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
		return fmt.Errorf("failed to write to portaudio stream: %w", err)
	}
	return nil
}

// Close pads the last partial buffer with silence. Stopping a PortAudio
// stream waits until all queued buffers have been played.
func (s *playbackStream) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if len(s.leftover) > 0 {
			block := make([]byte, len(s.out)*2)
			copy(block, s.leftover)
			s.leftover = nil
			if err := s.writeBlock(block); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop portaudio stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close portaudio stream: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
