package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/talkingai/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const typeErrorResponse = "Error"

var (
	errNotConnected = errors.New("deepgram stream is not connected")
	errStopped      = errors.New("deepgram stream was stopped")
)

// Transcribe opens the live stream. Fragments are reported on the reading
// goroutine in the order Deepgram sends them.
func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	ctx, span := tracer.Start(ctx, "open transcription stream")
	defer span.End()

	options := speechtotext.DefaultTranscriptionOptions()
	for _, opt := range opts {
		opt(&options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("invalid encoding: %w", err)
	}

	listenURL, err := s.buildListenURL(*encoding, options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("deepgram.model", options.Model),
		attribute.String("deepgram.language", options.Language),
		attribute.Int("deepgram.endpointing_ms", options.EndpointingMs),
	)

	conn, err := s.dial(ctx, listenURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.connMu.Lock()
	s.conn = conn
	s.stopped = false
	s.lastMsgTs = time.Now()
	s.pendingSegment = false
	s.connMu.Unlock()

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go s.keepAlive(streamCtx)
	go func() {
		defer cancel()
		s.readAndProcessMessages(ctx, conn, listenURL, options)
	}()

	return nil
}

func (s *TranscriptionClient) dial(ctx context.Context, listenURL string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL,
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (s *TranscriptionClient) buildListenURL(encoding encodingInfo, options speechtotext.TranscriptionOptions) (string, error) {
	listenURL, err := url.Parse(s.listenURL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", strconv.Itoa(encoding.Channels))
	queryParams.Set("model", options.Model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", strconv.FormatBool(options.SmartFormat))
	queryParams.Set("endpointing", strconv.Itoa(options.EndpointingMs))
	if options.UtteranceEndMs > 0 {
		queryParams.Set("utterance_end_ms", strconv.Itoa(options.UtteranceEndMs))
		// Deepgram rejects utterance_end_ms without interim results.
		queryParams.Set("interim_results", "true")
	}
	if options.SpeechStartedCallback != nil {
		queryParams.Set("vad_events", "true")
	}

	listenURL.RawQuery = queryParams.Encode()
	return listenURL.String(), nil
}

func (s *TranscriptionClient) SendAudio(audio []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return errNotConnected
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopStream asks Deepgram to flush what it has and close the stream.
func (s *TranscriptionClient) StopStream() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.stopped = true
	if s.conn != nil {
		if err := s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return fmt.Errorf("failed to close deepgram stream: %w", err)
		}
	}
	return nil
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *TranscriptionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(max(s.keepAliveInterval/5, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil && time.Since(s.lastMsgTs) >= s.keepAliveInterval {
				s.lastMsgTs = time.Now()
				if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
					logger.Warn("failed to send deepgram keepalive", "error", err)
				}
			}
			s.connMu.Unlock()
		}
	}
}

// readAndProcessMessages reads until the stream is stopped. A connection that
// drops while the stream is live is dialled again; ctx bounds the redials.
func (s *TranscriptionClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, listenURL string, options speechtotext.TranscriptionOptions) {
	for {
		readErr := s.readMessages(conn, options)
		if s.isStopped() {
			s.endStream(options, nil)
			return
		}

		readErr = fmt.Errorf("failed to read deepgram message: %w", readErr)
		s.reportError(options, readErr)

		next, err := s.redial(ctx, listenURL)
		if errors.Is(err, errStopped) {
			s.endStream(options, nil)
			return
		}
		if err != nil {
			s.endStream(options, errors.Join(readErr, err))
			return
		}
		conn = next
	}
}

func (s *TranscriptionClient) readMessages(conn *websocket.Conn, options speechtotext.TranscriptionOptions) error {
	defer func() {
		s.connMu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.connMu.Unlock()
		conn.Close()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType == websocket.TextMessage {
			s.processMessage(msg, options)
		}
	}
}

func (s *TranscriptionClient) redial(ctx context.Context, listenURL string) (*websocket.Conn, error) {
	if s.redialAttempts == 0 {
		return nil, errors.New("reconnecting is disabled")
	}

	var errs []error
	for attempt := 1; attempt <= s.redialAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(append(errs, err)...)
		}

		conn, err := s.dial(ctx, listenURL)
		if err != nil {
			logger.Warn("failed to reconnect to deepgram", "attempt", attempt, "error", err)
			errs = append(errs, err)
			continue
		}

		s.connMu.Lock()
		if s.stopped {
			s.connMu.Unlock()
			conn.Close()
			return nil, errStopped
		}
		s.conn = conn
		s.lastMsgTs = time.Now()
		s.connMu.Unlock()

		logger.Info("reconnected to deepgram", "attempt", attempt)
		return conn, nil
	}
	return nil, errors.Join(errs...)
}

func (s *TranscriptionClient) isStopped() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.stopped
}

func (s *TranscriptionClient) endStream(options speechtotext.TranscriptionOptions, err error) {
	if err != nil {
		logger.Error("deepgram stream ended", "error", err)
	}
	if options.StreamEndedCallback != nil {
		options.StreamEndedCallback(err)
	}
}

func (s *TranscriptionClient) processMessage(msg []byte, options speechtotext.TranscriptionOptions) {
	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		s.reportError(options, fmt.Errorf("failed to unmarshal deepgram message: %w", err))
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			s.reportError(options, fmt.Errorf("failed to unmarshal deepgram results: %w", err))
			return
		}
		if !msgResp.IsFinal {
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = msgResp.Channel.Alternatives[0].Transcript
		}
		// Finalized silence carries nothing and ends nothing.
		if transcript == "" && !msgResp.SpeechFinal {
			return
		}
		s.pendingSegment = !msgResp.SpeechFinal
		s.emit(options, speechtotext.Fragment{Text: transcript, IsFinal: msgResp.SpeechFinal})

	case api.TypeUtteranceEndResponse:
		if s.pendingSegment {
			s.pendingSegment = false
			s.emit(options, speechtotext.Fragment{Text: "", IsFinal: true})
		}

	case api.TypeSpeechStartedResponse:
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}

	case typeErrorResponse:
		s.reportError(options, fmt.Errorf("deepgram error: %s", parsedMsg.Description))
	}
}

func (s *TranscriptionClient) emit(options speechtotext.TranscriptionOptions, fragment speechtotext.Fragment) {
	if options.FragmentCallback != nil {
		options.FragmentCallback(fragment)
	}
}

func (s *TranscriptionClient) reportError(options speechtotext.TranscriptionOptions, err error) {
	logger.Error("deepgram transcription error", "error", err)
	if options.ErrorCallback != nil {
		options.ErrorCallback(err)
	}
}
