package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var synthesizedBytes, _ = meter.Int64Counter("talkingai.tts.bytes",
	metric.WithDescription("Audio bytes received from the speech service"),
	metric.WithUnit("By"))

// Synthesize requests speech for text. The request is sent before returning,
// so a rejected request fails here and not in the sequence. The sequence
// yields chunks in the order they arrive and must be consumed once, to the
// end or until the caller stops, to release the connection.
func (c *SpeechSynthesizer) Synthesize(ctx context.Context, text string) (iter.Seq2[[]byte, error], error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")

	fail := func(err error) (iter.Seq2[[]byte, error], error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	speakURL, err := c.buildSpeakURL()
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(
		attribute.String("request.voice", c.options.Voice),
		attribute.Int("request.text_length", len(text)),
	)

	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakURL, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	return c.chunks(ctx, span, resp.Body), nil
}

func (c *SpeechSynthesizer) chunks(ctx context.Context, span trace.Span, body io.ReadCloser) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer span.End()
		defer body.Close()

		total := 0
		defer func() {
			span.SetAttributes(attribute.Int("response.bytes", total))
			synthesizedBytes.Add(ctx, int64(total))
		}()

		for {
			chunk := make([]byte, c.options.ChunkSize)
			n, err := io.ReadFull(body, chunk)
			if n > 0 {
				total += n
				if !yield(chunk[:n], nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}
			if err != nil {
				err = fmt.Errorf("error reading speech stream: %w", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				logger.Error("speech stream interrupted", "error", err, "bytes", total)
				yield(nil, err)
				return
			}
		}
	}
}

func (c *SpeechSynthesizer) buildSpeakURL() (string, error) {
	speakURL, err := url.Parse(c.speakURL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram speak url: %w", err)
	}

	queryParams := speakURL.Query()
	queryParams.Set("model", c.options.Voice)
	if encoding := c.options.EncodingInfo; !encoding.IsZero() {
		queryParams.Set("encoding", encoding.Format.Name())
		queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
		queryParams.Set("container", "none")
	}
	speakURL.RawQuery = queryParams.Encode()
	return speakURL.String(), nil
}
