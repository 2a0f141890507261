// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface.
//
// A recording is pushed through a short-lived stream: the clip is written as
// binary frames, a CloseStream message asks Deepgram to flush, and every final
// Results message received before the server closes is joined into one
// Transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/provider/stt"
	"github.com/coder/websocket"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"
	chunkSize        = 8192
)

var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the listen endpoint. Used for self-hosted Deepgram
// deployments and tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams clip to Deepgram and returns the joined final results.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, opts stt.Options) (stt.Transcript, error) {
	if clip.Empty() {
		return stt.Transcript{}, nil
	}

	data := clip.Data
	var raw *audio.Format
	if clip.MediaType() == audio.ContentTypeL16 {
		f := audio.L16Format(clip.ContentType)
		raw = &f
		data = audio.BigEndianToLittle(audio.PCM{Data: data, Format: f}).Data
	}

	wsURL, err := p.buildURL(opts, raw)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- send(ctx, conn, data)
	}()

	out, err := collect(ctx, conn)
	if err != nil {
		conn.CloseNow()
		<-writeErr
		return stt.Transcript{}, err
	}
	if err := <-writeErr; err != nil {
		return stt.Transcript{}, err
	}
	conn.Close(websocket.StatusNormalClosure, "done")
	return out, nil
}

// send writes the payload in chunks followed by the CloseStream control message.
func send(ctx context.Context, conn *websocket.Conn, data []byte) error {
	for len(data) > 0 {
		n := min(chunkSize, len(data))
		if err := conn.Write(ctx, websocket.MessageBinary, data[:n]); err != nil {
			return fmt.Errorf("deepgram: write audio: %w", err)
		}
		data = data[n:]
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram: close stream: %w", err)
	}
	return nil
}

// collect reads until Deepgram sends its Metadata summary or closes the
// connection normally.
func collect(ctx context.Context, conn *websocket.Conn) (stt.Transcript, error) {
	var (
		parts []string
		out   stt.Transcript
		confs float64
	)
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			return stt.Transcript{}, fmt.Errorf("deepgram: read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}
		if messageType(msg) == "Metadata" {
			break
		}
		t, final, ok := parseDeepgramResponse(msg)
		if !ok || !final || strings.TrimSpace(t.Text) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(t.Text))
		confs += t.Confidence
		out.Words = append(out.Words, t.Words...)
		out.Duration = max(out.Duration, t.Duration)
	}
	out.Text = strings.Join(parts, " ")
	if len(parts) > 0 {
		out.Confidence = confs / float64(len(parts))
	}
	return out, nil
}

// buildURL constructs the Deepgram streaming endpoint URL. raw is non-nil when
// the payload is headerless PCM and the encoding must be declared.
func (p *Provider) buildURL(opts stt.Options, raw *audio.Format) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := opts.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	if raw != nil {
		q.Set("encoding", "linear16")
		q.Set("sample_rate", strconv.Itoa(raw.SampleRate))
		q.Set("channels", strconv.Itoa(raw.Channels))
	}

	for _, kw := range opts.Keywords {
		// Deepgram keyword format: word:boost (e.g., "apple:2")
		q.Add("keywords", fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type     string  `json:"type"`
	IsFinal  bool    `json:"is_final"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Channel  struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func messageType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.Type
}

// parseDeepgramResponse parses a Deepgram JSON message. It returns false for
// anything that is not a Results message with at least one alternative.
func parseDeepgramResponse(data []byte) (stt.Transcript, bool, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return stt.Transcript{}, false, false
	}
	if resp.Type != "Results" {
		return stt.Transcript{}, false, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return stt.Transcript{}, false, false
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]stt.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, stt.WordDetail{
			Word:       w.Word,
			Start:      seconds(w.Start),
			End:        seconds(w.End),
			Confidence: w.Confidence,
		})
	}

	return stt.Transcript{
		Text:       alt.Transcript,
		Confidence: alt.Confidence,
		Words:      words,
		Duration:   seconds(resp.Start + resp.Duration),
	}, resp.IsFinal, true
}

func seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }
