// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1 and the gpt-4o transcribe models).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/audio/codec"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = string(oai.AudioModelWhisper1)

var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client   oai.Client
	model    oai.AudioModel
	language string
}

type config struct {
	baseURL    string
	language   string
	timeout    time.Duration
	maxRetries int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Any server speaking
// the /audio/transcriptions dialect works (e.g. a local faster-whisper).
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithLanguage sets the ISO-639-1 language hint. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMaxRetries sets how often the client retries failed requests.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		c.maxRetries = n
	}
}

// New constructs a new OpenAI transcription Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{language: "en", maxRetries: 2}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client:   oai.NewClient(reqOpts...),
		model:    oai.AudioModel(model),
		language: cfg.language,
	}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	if clip.Empty() {
		return stt.Transcript{}, nil
	}
	data, name, ct, err := upload(clip)
	if err != nil {
		return stt.Transcript{}, err
	}

	params := oai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  oai.File(bytes.NewReader(data), name, ct),
	}
	lang := opts.Language
	if lang == "" {
		lang = p.language
	}
	if lang != "" {
		// The API only accepts the primary subtag.
		lang, _, _ = strings.Cut(lang, "-")
		params.Language = oai.String(lang)
	}
	if prompt := keywordPrompt(opts.Keywords); prompt != "" {
		params.Prompt = oai.String(prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: transcribe: %w", err)
	}
	return stt.Transcript{Text: strings.TrimSpace(resp.Text)}, nil
}

// upload returns the bytes, file name and content type sent to the API. WebM
// and WAV pass through; anything else is decoded and re-encoded as WAV.
func upload(clip audio.Clip) ([]byte, string, string, error) {
	switch clip.MediaType() {
	case audio.ContentTypeWebM:
		return clip.Data, "recording.webm", audio.ContentTypeWebM, nil
	case audio.ContentTypeWAV:
		return clip.Data, "recording.wav", audio.ContentTypeWAV, nil
	}
	pcm, err := codec.DecodeTo(clip, audio.STTFormat)
	if err != nil {
		return nil, "", "", fmt.Errorf("openai stt: decode clip: %w", err)
	}
	return audio.EncodeWAV(pcm), "recording.wav", audio.ContentTypeWAV, nil
}

// keywordPrompt turns keyword hints into the free-text prompt whisper uses to
// bias spelling.
func keywordPrompt(kws []stt.KeywordBoost) string {
	if len(kws) == 0 {
		return ""
	}
	words := make([]string, 0, len(kws))
	for _, kw := range kws {
		if kw.Keyword != "" {
			words = append(words, kw.Keyword)
		}
	}
	if len(words) == 0 {
		return ""
	}
	return "Vocabulary: " + strings.Join(words, ", ") + "."
}
