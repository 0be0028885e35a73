package miniaudio

import (
	"context"
	"fmt"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/talkingai/core/audio"
)

const defaultPlaybackBuffer = 500 * time.Millisecond

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	encodingInfo audio.EncodingInfo

	playbackClient
	captureClient
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	encodingInfo   audio.EncodingInfo
	playbackBuffer time.Duration
	withCapture    bool
	withPlayback   bool
}

// WithEncodingInfo sets the format used for both capture and playback. Only
// linear16 is supported by the device layer.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(o *clientOptions) {
		if !encodingInfo.IsZero() {
			o.encodingInfo = encodingInfo
		}
	}
}

// WithPlaybackBuffer bounds how much audio can be queued ahead of the device
// before Write blocks.
func WithPlaybackBuffer(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.playbackBuffer = d
		}
	}
}

// WithoutCapture skips microphone initialization, e.g. when the client is
// only used as a player.
func WithoutCapture() ClientOption {
	return func(o *clientOptions) { o.withCapture = false }
}

// WithoutPlayback skips playback device initialization.
func WithoutPlayback() ClientOption {
	return func(o *clientOptions) { o.withPlayback = false }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	options := clientOptions{
		encodingInfo:   audio.GetDefaultEncodingInfo(),
		playbackBuffer: defaultPlaybackBuffer,
		withCapture:    true,
		withPlayback:   true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.encodingInfo.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported encoding %s, only linear16 is supported", options.encodingInfo)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("malgo context initialization failed: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		encodingInfo: options.encodingInfo,
	}

	if options.withPlayback {
		if err := client.playbackClient.Init(audioCtx, options.encodingInfo, options.playbackBuffer); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize playback client: %w", err)
		}
	}

	if options.withCapture {
		if err := client.captureClient.Init(audioCtx, options.encodingInfo); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize capture client: %w", err)
		}
	}

	return &client, nil
}

// Stream captures microphone audio until ctx is done.
func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if err := c.captureClient.Start(onAudio); err != nil {
		return err
	}
	<-ctx.Done()
	return c.captureClient.Stop()
}

// Open starts the playback device for one response.
func (c *Client) Open(ctx context.Context) (audio.PlaybackStream, error) {
	return c.playbackClient.Open(ctx)
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}
