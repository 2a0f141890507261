// Package whisper provides local whisper.cpp-backed STT providers.
//
// Provider talks to a running whisper-server binary (REST API at
// POST /inference). NativeProvider links whisper.cpp through its CGO bindings
// and runs inference in-process.
//
// Both decode the submitted clip to 16 kHz mono PCM first. Recordings whose
// energy never rises above the silence threshold are answered with an empty
// transcript without touching the model.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	)
//	tr, err := p.Transcribe(ctx, clip, stt.Options{})
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/audio/codec"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
)

const (
	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a whole recording is considered silent. The maximum
	// possible value for 16-bit audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage    = "en"
	defaultMaxDuration = 30 * time.Second
	defaultHTTPTimeout = 30 * time.Second
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code sent to the whisper.cpp server
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithSilenceThreshold sets the RMS level below which a recording is treated
// as silence. Zero disables the check.
func WithSilenceThreshold(rms float64) Option {
	return func(p *Provider) {
		p.rmsThreshold = rms
	}
}

// WithMaxDuration caps the amount of audio sent per request. Longer
// recordings are truncated. Defaults to 30 s, the whisper context window.
func WithMaxDuration(d time.Duration) Option {
	return func(p *Provider) {
		p.maxDuration = d
	}
}

// WithHTTPClient replaces the HTTP client used for inference requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by a local whisper.cpp HTTP server.
type Provider struct {
	serverURL    string
	model        string
	language     string
	rmsThreshold float64
	maxDuration  time.Duration
	httpClient   *http.Client
}

// New creates a new Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:    strings.TrimRight(serverURL, "/"),
		language:     defaultLanguage,
		rmsThreshold: defaultRMSThreshold,
		maxDuration:  defaultMaxDuration,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe decodes clip, re-encodes it as a 16 kHz mono WAV and posts it to
// the inference endpoint.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	if clip.Empty() {
		return stt.Transcript{}, nil
	}
	pcm, err := prepare(clip, p.maxDuration)
	if err != nil {
		return stt.Transcript{}, err
	}
	if silent(pcm.Data, p.rmsThreshold) {
		return stt.Transcript{Duration: pcm.Duration()}, nil
	}

	lang := opts.Language
	if lang == "" {
		lang = p.language
	}
	text, err := p.infer(ctx, audio.EncodeWAV(pcm), lang)
	if err != nil {
		return stt.Transcript{}, err
	}
	return stt.Transcript{Text: strings.TrimSpace(text), Duration: pcm.Duration()}, nil
}

// infer sends a WAV payload to the whisper.cpp /inference endpoint as
// multipart/form-data. It returns the transcribed text or an error.
func (p *Provider) infer(ctx context.Context, wav []byte, lang string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}

	if lang != "" {
		if err := mw.WriteField("language", lang); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("whisper: write format field: %w", err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}

	return result.Text, nil
}

// ---- helpers ----------------------------------------------------------------

// prepare decodes clip to the STT format and truncates it to limit.
func prepare(clip audio.Clip, limit time.Duration) (audio.PCM, error) {
	pcm, err := codec.DecodeTo(clip, audio.STTFormat)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("whisper: decode clip: %w", err)
	}
	if limit > 0 {
		maxBytes := int(limit.Seconds() * float64(pcm.Format.BytesPerSecond()))
		maxBytes -= maxBytes % 2
		if len(pcm.Data) > maxBytes {
			pcm.Data = pcm.Data[:maxBytes]
		}
	}
	return pcm, nil
}

// silent reports whether the RMS energy of the 16-bit little-endian PCM is
// below threshold. A non-positive threshold never reports silence.
func silent(pcm []byte, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	return rms(pcm) < threshold
}

// rms computes the root-mean-square energy of 16-bit little-endian PCM.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
