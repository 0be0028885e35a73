package deepgram

import (
	"slices"

	"github.com/koscakluka/talkingai/core/texttospeech"
)

const defaultVoice = "aura-athena-en"

var voices = []texttospeech.Voice{
	{ID: "aura-asteria-en", Name: "Asteria", Gender: "feminine", Accent: "American", Language: "en-US"},
	{ID: "aura-luna-en", Name: "Luna", Gender: "feminine", Accent: "American", Language: "en-US"},
	{ID: "aura-stella-en", Name: "Stella", Gender: "feminine", Accent: "American", Language: "en-US"},
	{ID: "aura-athena-en", Name: "Athena", Gender: "feminine", Accent: "British", Language: "en-GB"},
	{ID: "aura-hera-en", Name: "Hera", Gender: "feminine", Accent: "American", Language: "en-US"},
	{ID: "aura-orion-en", Name: "Orion", Gender: "masculine", Accent: "American", Language: "en-US"},
	{ID: "aura-arcas-en", Name: "Arcas", Gender: "masculine", Accent: "American", Language: "en-US"},
	{ID: "aura-perseus-en", Name: "Perseus", Gender: "masculine", Accent: "American", Language: "en-US"},
	{ID: "aura-angus-en", Name: "Angus", Gender: "masculine", Accent: "Irish", Language: "en-IE"},
	{ID: "aura-orpheus-en", Name: "Orpheus", Gender: "masculine", Accent: "American", Language: "en-US"},
	{ID: "aura-helios-en", Name: "Helios", Gender: "masculine", Accent: "British", Language: "en-GB"},
	{ID: "aura-zeus-en", Name: "Zeus", Gender: "masculine", Accent: "American", Language: "en-US"},
}

func GetAvailableVoices() []texttospeech.Voice {
	return slices.Clone(voices)
}

func isAvailableVoice(id string) bool {
	return slices.ContainsFunc(voices, func(v texttospeech.Voice) bool { return v.ID == id })
}
