package tts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/iwsaver/internal/version"
)

// CoquiSynth speaks through a Coqui TTS server (tts-server).
type CoquiSynth struct {
	client *resty.Client
	info   ModelInfo
}

// NewCoqui creates a synthesizer for the server at the model's base_url.
func NewCoqui(info ModelInfo) (Synthesizer, error) {
	if info.BaseURL == "" {
		return nil, errors.New("coqui model requires base_url")
	}

	timeout := 2 * time.Minute
	if v := info.Options["timeout"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
		timeout = d
	}

	client := resty.New()
	client.SetBaseURL(info.BaseURL)
	client.SetHeader("user-agent", version.UserAgent())
	client.SetTimeout(timeout)

	return &CoquiSynth{client: client, info: info}, nil
}

func (s *CoquiSynth) Name() string { return s.info.Name }

// Speakers returns the indexed speakers. Coqui servers do not publish a
// speaker list, so an empty list means any speaker id is passed through.
func (s *CoquiSynth) Speakers(context.Context) ([]string, error) {
	return s.info.Speakers, nil
}

// Synthesize implements Synthesizer.
func (s *CoquiSynth) Synthesize(ctx context.Context, text, speaker string) ([]byte, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("text", text).
		SetQueryParam("speaker_id", speaker)
	if lang := s.info.Options["language"]; lang != "" {
		req.SetQueryParam("language_id", lang)
	}

	res, err := req.Get("/api/tts")
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("tts request: status %d: %s", res.StatusCode(), res.String())
	}
	if len(res.Body()) == 0 {
		return nil, errors.New("tts server returned no audio")
	}
	return res.Body(), nil
}

func (s *CoquiSynth) Close() error { return nil }
