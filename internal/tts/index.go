package tts

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultIndexPath is the voice index looked up in the working directory.
const DefaultIndexPath = "voices.yaml"

// ModelInfo describes one narration model.
type ModelInfo struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Backend     string            `yaml:"backend" json:"backend"` // "openai", "coqui"
	BaseURL     string            `yaml:"base_url,omitempty" json:"-"`
	Model       string            `yaml:"model,omitempty" json:"-"`
	APIKeyEnv   string            `yaml:"api_key_env,omitempty" json:"-"`
	Speakers    []string          `yaml:"speakers,omitempty" json:"speakers"`
	Options     map[string]string `yaml:"options,omitempty" json:"-"`
}

// HasSpeaker reports whether speaker is listed. Models without a speaker
// list accept any speaker.
func (m ModelInfo) HasSpeaker(speaker string) bool {
	if len(m.Speakers) == 0 {
		return true
	}
	for _, s := range m.Speakers {
		if s == speaker {
			return true
		}
	}
	return false
}

type indexFile struct {
	Models []ModelInfo `yaml:"models"`
}

// DefaultModels is used when no index file exists.
func DefaultModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "openai",
			Description: "OpenAI speech API",
			Backend:     BackendOpenAI,
			Model:       "tts-1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Speakers:    []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"},
		},
		{
			Name:        "coqui",
			Description: "Local Coqui TTS server",
			Backend:     BackendCoqui,
			BaseURL:     "http://localhost:5002",
		},
	}
}

// LoadIndex reads the model index at path. A missing file yields the
// default models.
func LoadIndex(path string) ([]ModelInfo, error) {
	if path == "" {
		path = DefaultIndexPath
	}
	data, err := os.ReadFile(path) //#nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return DefaultModels(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx indexFile
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	seen := make(map[string]bool, len(idx.Models))
	for i, m := range idx.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("parse index: model %d has no name", i)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("parse index: duplicate model %q", m.Name)
		}
		seen[m.Name] = true
	}
	return idx.Models, nil
}
