// Package llms holds what response generators share: the persona the
// assistant speaks as and the sampling options.
package llms

import (
	"fmt"
	"strings"
)

const (
	DefaultInstructions = "Your name is Emma. That is very important."
	DefaultWordLimit    = 20
	DefaultTemperature  = 0.1
)

// Persona is the standing instruction sent with every utterance.
type Persona struct {
	Instructions string
	// WordLimit caps the spoken reply length. Zero means no limit.
	WordLimit int
}

func DefaultPersona() Persona {
	return Persona{Instructions: DefaultInstructions, WordLimit: DefaultWordLimit}
}

// SystemPrompt composes the instructions and the word limit into the
// system message.
func (p Persona) SystemPrompt() string {
	parts := []string{}
	if instructions := strings.TrimSpace(p.Instructions); instructions != "" {
		parts = append(parts, instructions)
	}
	if p.WordLimit > 0 {
		parts = append(parts, fmt.Sprintf("Your response must be under %d words.", p.WordLimit))
	}
	return strings.Join(parts, " ")
}

type GenerationOptions struct {
	Model       string
	Temperature float64
	// BaseURL overrides the provider endpoint, e.g. for a compatible proxy.
	BaseURL string
}

type GenerationOption func(*GenerationOptions)

func WithModel(model string) GenerationOption {
	return func(o *GenerationOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithTemperature(temperature float64) GenerationOption {
	return func(o *GenerationOptions) { o.Temperature = temperature }
}

func WithBaseURL(baseURL string) GenerationOption {
	return func(o *GenerationOptions) { o.BaseURL = baseURL }
}
