package speechtotext

import "github.com/koscakluka/talkingai/core/audio"

const (
	DefaultModel         = "nova-2"
	DefaultLanguage      = "en-US"
	DefaultEndpointingMs = 380
)

type TranscriptionOptions struct {
	// FragmentCallback receives transcript fragments in arrival order. It is
	// never called concurrently by a single transcription stream.
	FragmentCallback func(Fragment)
	// ErrorCallback receives stream-level errors. The stream may recover from
	// them; StreamEndedCallback reports when it cannot.
	ErrorCallback func(error)
	// StreamEndedCallback is called once when the stream will deliver no more
	// fragments. err is nil when the stream was stopped by the caller.
	StreamEndedCallback func(err error)

	SpeechStartedCallback func()

	EncodingInfo audio.EncodingInfo

	Model    string
	Language string
	// EndpointingMs is the pause after which the service finalizes speech.
	EndpointingMs int
	// UtteranceEndMs, when positive, asks for an additional word-gap based
	// end-of-utterance signal, delivered as an empty final fragment.
	UtteranceEndMs int
	SmartFormat    bool
}

func DefaultTranscriptionOptions() TranscriptionOptions {
	return TranscriptionOptions{
		EncodingInfo:  audio.GetDefaultEncodingInfo(),
		Model:         DefaultModel,
		Language:      DefaultLanguage,
		EndpointingMs: DefaultEndpointingMs,
		SmartFormat:   true,
	}
}

type TranscriptionOption func(*TranscriptionOptions)

func WithFragmentCallback(callback func(Fragment)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.FragmentCallback = callback
	}
}

func WithErrorCallback(callback func(error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

func WithStreamEndedCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.StreamEndedCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if !encodingInfo.IsZero() {
			o.EncodingInfo = encodingInfo
		}
	}
}

func WithModel(model string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithLanguage sets the BCP-47 tag of the spoken language, e.g. "zh-TW".
func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithEndpointing(ms int) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		if ms > 0 {
			o.EndpointingMs = ms
		}
	}
}

func WithUtteranceEnd(ms int) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.UtteranceEndMs = ms
	}
}

func WithSmartFormat(enabled bool) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SmartFormat = enabled
	}
}
