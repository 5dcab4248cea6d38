// Package tts narrates story paragraphs through pluggable speech backends.
//
// Voices are addressed as "model:speaker". Models are listed in an index
// (voices.yaml) and loaded lazily by a Registry owned by the caller.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownModel means the voice names a model missing from the index.
	ErrUnknownModel = errors.New("unknown tts model")

	// ErrInvalidVoice means a voice id is not of the form model:speaker.
	ErrInvalidVoice = errors.New("voice must be model:speaker")

	// ErrUnknownSpeaker means the model has no such speaker.
	ErrUnknownSpeaker = errors.New("unknown speaker")

	// ErrEmptyText means there is nothing to narrate.
	ErrEmptyText = errors.New("text is empty")

	// ErrUnknownBackend means no factory is registered for a model's backend.
	ErrUnknownBackend = errors.New("unknown tts backend")
)

// Synthesizer turns text into speech for one model.
type Synthesizer interface {
	// Name returns the model name.
	Name() string

	// Speakers lists the speakers the model can use.
	Speakers(ctx context.Context) ([]string, error)

	// Synthesize returns WAV audio of text spoken by speaker.
	Synthesize(ctx context.Context, text, speaker string) ([]byte, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// Voice identifies a speaker of a model.
type Voice struct {
	Model   string
	Speaker string
}

func (v Voice) String() string { return v.Model + ":" + v.Speaker }

// ParseVoice splits "model:speaker". The speaker may itself contain colons.
func ParseVoice(s string) (Voice, error) {
	model, speaker, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || model == "" || speaker == "" {
		return Voice{}, fmt.Errorf("%w: %q", ErrInvalidVoice, s)
	}
	return Voice{Model: model, Speaker: speaker}, nil
}
