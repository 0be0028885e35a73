// Package deepgram streams microphone audio to Deepgram's live transcription
// API and reports finalized transcript fragments.
package deepgram

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultListenURL      = "wss://api.deepgram.com/v1/listen"
	defaultRedialAttempts = 1
)

type TranscriptionClient struct {
	apiKey    string
	listenURL string

	conn   *websocket.Conn
	connMu sync.Mutex
	// stopped is set once the caller asked the stream to end, so the closure
	// that follows is not mistaken for a drop.
	stopped bool

	lastMsgTs time.Time
	// pendingSegment is set while finalized text has been reported that no
	// final fragment has closed yet.
	pendingSegment bool

	keepAliveInterval time.Duration
	redialAttempts    int
}

type ClientOption func(*TranscriptionClient)

// WithAPIKey sets the key used to authenticate. It defaults to the
// DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

// WithListenURL overrides the websocket endpoint.
func WithListenURL(listenURL string) ClientOption {
	return func(c *TranscriptionClient) { c.listenURL = listenURL }
}

func WithKeepAliveInterval(interval time.Duration) ClientOption {
	return func(c *TranscriptionClient) {
		if interval > 0 {
			c.keepAliveInterval = interval
		}
	}
}

// WithRedialAttempts sets how many times a dropped stream is dialled again
// before it is given up. Zero disables reconnecting.
func WithRedialAttempts(attempts int) ClientOption {
	return func(c *TranscriptionClient) {
		if attempts >= 0 {
			c.redialAttempts = attempts
		}
	}
}

func NewTranscriptionClient(opts ...ClientOption) (*TranscriptionClient, error) {
	client := &TranscriptionClient{
		listenURL:         defaultListenURL,
		keepAliveInterval: 5 * time.Second,
		redialAttempts:    defaultRedialAttempts,
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		client.apiKey = apiKey
	}

	return client, nil
}

// Close ends the stream and drops the connection.
func (s *TranscriptionClient) Close() error {
	stopErr := s.StopStream()

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("failed to close deepgram websocket: %w", err)
		}
		s.conn = nil
	}
	return stopErr
}
