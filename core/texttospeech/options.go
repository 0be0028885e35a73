package texttospeech

import "github.com/koscakluka/talkingai/core/audio"

// DefaultChunkSize is the size of the audio chunks handed to the player.
const DefaultChunkSize = 1024

type Voice struct {
	ID       string
	Name     string
	Gender   string
	Accent   string
	Language string
}

type SynthesisOptions struct {
	Voice string
	// EncodingInfo requests raw audio in the given encoding. When zero the
	// service default (a containerised, compressed stream) is returned, which
	// only a decoding player such as ffplay can handle.
	EncodingInfo audio.EncodingInfo
	ChunkSize    int
}

type SynthesisOption func(*SynthesisOptions)

func WithVoice(voice string) SynthesisOption {
	return func(o *SynthesisOptions) {
		if voice != "" {
			o.Voice = voice
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithChunkSize(size int) SynthesisOption {
	return func(o *SynthesisOptions) {
		if size > 0 {
			o.ChunkSize = size
		}
	}
}
