package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/talkingai/core/audio"
)

var errDeviceStopped = errors.New("playback device stopped unexpectedly")

type playbackClient struct {
	device *malgo.Device
	config malgo.DeviceConfig

	// maxBuffered is the number of bytes that may wait for the device before
	// Write blocks.
	maxBuffered int
	// latency approximates what the device holds after pending is empty.
	latency time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	pending []byte
	open    bool
	failed  error
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo, buffer time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cond = sync.NewCond(&c.mu)

	sampleRate := uint32(encoding.SampleRate)
	channels := encoding.ChannelCount()
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.maxBuffered = max(encoding.BytesPerSecond()*int(buffer)/int(time.Second), bytesPerFrame)
	c.latency = time.Duration(c.config.Periods) * 100 * time.Millisecond

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{
			Data: c.processAudio,
			Stop: c.onDeviceStopped,
		},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Open(context.Context) (audio.PlaybackStream, error) {
	c.mu.Lock()
	device := c.device
	if device == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: playback device not initialized", audio.ErrPlayerUnavailable)
	} else if c.open {
		c.mu.Unlock()
		return nil, fmt.Errorf("playback device already in use")
	}
	c.pending = c.pending[:0]
	c.failed = nil
	c.open = true
	c.mu.Unlock()

	// Device callbacks take mu, so the device is never started or stopped
	// while holding it.
	if err := device.Start(); err != nil {
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: failed to start playback device: %w", audio.ErrPlayerUnavailable, err)
	}

	return &playbackStream{client: c}, nil
}

// write queues audio, blocking while maxBuffered bytes are already waiting.
func (c *playbackClient) write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	written := 0
	for written < len(p) {
		for c.open && c.failed == nil && len(c.pending) >= c.maxBuffered {
			c.cond.Wait()
		}
		if c.failed != nil {
			return written, c.failed
		} else if !c.open {
			return written, fmt.Errorf("playback stream closed")
		}

		n := min(c.maxBuffered-len(c.pending), len(p)-written)
		c.pending = append(c.pending, p[written:written+n]...)
		written += n
	}
	return written, nil
}

// drain waits for queued audio to reach the device, lets the device play it
// out and stops it.
func (c *playbackClient) drain() error {
	c.mu.Lock()
	for c.failed == nil && len(c.pending) > 0 {
		c.cond.Wait()
	}
	failed := c.failed
	c.mu.Unlock()

	if failed == nil {
		time.Sleep(c.latency)
	}

	c.mu.Lock()
	c.open = false
	c.cond.Broadcast()
	c.mu.Unlock()

	if err := c.device.Stop(); err != nil {
		return errors.Join(failed, fmt.Errorf("failed to stop playback device: %w", err))
	}
	return failed
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.open = false
	c.mu.Unlock()

	if device == nil {
		return fmt.Errorf("device not initialized")
	}

	device.Uninit()
	return nil
}

func (c *playbackClient) processAudio(pOutput, _ []byte, _ uint32) {
	c.mu.Lock()
	n := copy(pOutput, c.pending)
	c.pending = c.pending[n:]
	c.cond.Broadcast()
	c.mu.Unlock()

	clear(pOutput[n:])
}

func (c *playbackClient) onDeviceStopped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		c.failed = errDeviceStopped
		c.cond.Broadcast()
	}
}

type playbackStream struct {
	client *playbackClient

	closeOnce sync.Once
	closeErr  error
}

func (s *playbackStream) Write(p []byte) (int, error) { return s.client.write(p) }

func (s *playbackStream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.client.drain() })
	return s.closeErr
}
