package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAISynth speaks through the OpenAI speech endpoint.
type OpenAISynth struct {
	client openai.Client
	info   ModelInfo
	model  string
}

// NewOpenAI creates an OpenAI synthesizer. The API key is read from the
// environment variable named by the model's api_key_env.
func NewOpenAI(info ModelInfo) (Synthesizer, error) {
	keyEnv := info.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("OpenAI API key required (set %s)", keyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
	}
	if info.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(info.BaseURL))
	}

	model := info.Model
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}

	return &OpenAISynth{
		client: openai.NewClient(opts...),
		info:   info,
		model:  model,
	}, nil
}

func (s *OpenAISynth) Name() string { return s.info.Name }

func (s *OpenAISynth) Speakers(context.Context) ([]string, error) {
	return s.info.Speakers, nil
}

// Synthesize implements Synthesizer.
func (s *OpenAISynth) Synthesize(ctx context.Context, text, speaker string) ([]byte, error) {
	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(speaker),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	}
	if instructions := s.info.Options["instructions"]; instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	resp, err := s.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return audio, nil
}

func (s *OpenAISynth) Close() error { return nil }
