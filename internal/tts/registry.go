package tts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// Backend names understood by the default factories.
const (
	BackendOpenAI = "openai"
	BackendCoqui  = "coqui"
)

// Factory creates a synthesizer for a model.
type Factory func(info ModelInfo) (Synthesizer, error)

// Registry owns the configured models and the synthesizers loaded for them.
// Synthesizers are created on first use and kept until Close.
type Registry struct {
	models    []ModelInfo
	factories map[string]Factory

	mu     sync.Mutex
	loaded map[string]Synthesizer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory registers or replaces the factory for a backend.
func WithFactory(backend string, f Factory) RegistryOption {
	return func(r *Registry) { r.factories[backend] = f }
}

// NewRegistry creates a registry over models.
func NewRegistry(models []ModelInfo, opts ...RegistryOption) *Registry {
	r := &Registry{
		models: models,
		factories: map[string]Factory{
			BackendOpenAI: NewOpenAI,
			BackendCoqui:  NewCoqui,
		},
		loaded: make(map[string]Synthesizer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Models returns the configured models sorted by name.
func (r *Registry) Models() []ModelInfo {
	out := make([]ModelInfo, len(r.models))
	copy(out, r.models)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Model returns the index entry for name.
func (r *Registry) Model(name string) (ModelInfo, error) {
	for _, m := range r.models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// Get returns the synthesizer for a model, loading it on first use.
func (r *Registry) Get(name string) (Synthesizer, error) {
	info, err := r.Model(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.loaded[name]; ok {
		return s, nil
	}
	factory, ok := r.factories[info.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s (model %s)", ErrUnknownBackend, info.Backend, name)
	}
	s, err := factory(info)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	r.loaded[name] = s
	logger.Info("tts model loaded", "model", name, "backend", info.Backend)
	return s, nil
}

// Speakers lists the speakers of a model, asking the backend when the
// index has no list.
func (r *Registry) Speakers(ctx context.Context, name string) ([]string, error) {
	info, err := r.Model(name)
	if err != nil {
		return nil, err
	}
	if len(info.Speakers) > 0 {
		return info.Speakers, nil
	}
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return s.Speakers(ctx)
}

// CheckVoice validates a voice id against the index.
func (r *Registry) CheckVoice(voice string) (Voice, error) {
	v, err := ParseVoice(voice)
	if err != nil {
		return Voice{}, err
	}
	info, err := r.Model(v.Model)
	if err != nil {
		return Voice{}, err
	}
	if !info.HasSpeaker(v.Speaker) {
		return Voice{}, fmt.Errorf("%w: %s has no speaker %q", ErrUnknownSpeaker, v.Model, v.Speaker)
	}
	return v, nil
}

// Synthesize speaks text in voice and returns WAV bytes.
func (r *Registry) Synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	v, err := r.CheckVoice(voice)
	if err != nil {
		return nil, err
	}
	s, err := r.Get(v.Model)
	if err != nil {
		return nil, err
	}

	audio, err := s.Synthesize(ctx, text, v.Speaker)
	if err != nil {
		return nil, fmt.Errorf("synthesize with %s: %w", v, err)
	}
	logger.Debug("synthesized", "voice", v.String(), "chars", len(text), "bytes", len(audio))
	return audio, nil
}

// Close releases every loaded synthesizer.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, s := range r.loaded {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(r.loaded, name)
	}
	return errors.Join(errs...)
}
