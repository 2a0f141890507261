// Package client talks to a wordgate server. A [Client] is both the
// vocabulary [game.Source] and the answer [game.Submitter] of a session
// played against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/game"
)

// defaultTimeout bounds every request unless [WithHTTPClient] supplies a
// client of its own.
const defaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// ErrStatus is wrapped by errors for unexpected HTTP status codes.
var ErrStatus = errors.New("client: unexpected status")

// Compile-time interface assertions.
var (
	_ game.Source    = (*Client)(nil)
	_ game.Submitter = (*Client)(nil)
)

// Check is one entry of the server's check journal.
type Check struct {
	ID          string        `json:"id"`
	ContentType string        `json:"content_type"`
	Bytes       int           `json:"bytes"`
	Provider    string        `json:"provider,omitempty"`
	Transcript  string        `json:"transcript"`
	Normalized  string        `json:"normalized,omitempty"`
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Latency     time.Duration `json:"latency_ns"`
	At          time.Time     `json:"at"`
}

// checkResponse is the body of POST /check_answer.
type checkResponse struct {
	Success     bool   `json:"success"`
	Transcribed string `json:"transcribed"`
	Normalized  string `json:"normalized"`
	Message     string `json:"message"`
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// Client is a wordgate HTTP client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the server at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Load implements [game.Source] by fetching GET /words.
func (c *Client) Load(ctx context.Context) (game.Vocabulary, error) {
	var v game.Vocabulary
	if err := c.getJSON(ctx, "/words", &v); err != nil {
		return game.Vocabulary{}, fmt.Errorf("client: load words: %w", err)
	}
	if v.Answers == nil {
		v.Answers = map[string]string{}
	}
	return v, nil
}

// Submit implements [game.Submitter] by posting clip to /check_answer. An
// unsuccessful verdict is returned without error; only transport failures and
// unexpected statuses are errors.
func (c *Client) Submit(ctx context.Context, clip audio.Clip) (game.Verdict, error) {
	body, contentType, err := multipartBody(clip)
	if err != nil {
		return game.Verdict{}, fmt.Errorf("client: check answer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/check_answer"), body)
	if err != nil {
		return game.Verdict{}, fmt.Errorf("client: check answer: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var res checkResponse
	if err := c.do(req, &res); err != nil {
		return game.Verdict{}, fmt.Errorf("client: check answer: %w", err)
	}
	return game.Verdict{Success: res.Success, Normalized: res.Normalized, Message: res.Message}, nil
}

// Checks fetches up to limit journal entries, newest first.
func (c *Client) Checks(ctx context.Context, limit int) ([]Check, error) {
	path := "/checks"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Checks []Check `json:"checks"`
	}
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("client: list checks: %w", err)
	}
	return out.Checks, nil
}

func (c *Client) url(path string) string {
	return c.base.String() + path
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, e.Message)
		}
		return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// multipartBody wraps clip in a form with a single "audio" file part that
// carries the clip's content type.
func multipartBody(clip audio.Clip) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, uploadName(clip)))
	ct := clip.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func uploadName(clip audio.Clip) string {
	switch clip.MediaType() {
	case audio.ContentTypeWebM:
		return "recording.webm"
	case audio.ContentTypeWAV:
		return "recording.wav"
	}
	return "recording.bin"
}
