// Package server exposes the wordgate HTTP API:
//
//	GET  /words         vocabulary for a new session
//	POST /check_answer  multipart "audio" field, transcribed and normalised
//	GET  /checks        recent answer checks, newest first
//	GET  /live          websocket-hosted game sessions
//	GET  /healthz       liveness
//	GET  /readyz        readiness
//	GET  /metrics       Prometheus scrape endpoint
//	GET  /static/...    browser client files
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MrWong99/wordgate/internal/answer"
	"github.com/MrWong99/wordgate/internal/health"
	"github.com/MrWong99/wordgate/internal/observe"
	"github.com/MrWong99/wordgate/pkg/audio"
	"github.com/MrWong99/wordgate/pkg/game"
)

// Limits for GET /checks.
const (
	DefaultChecksLimit = 20
	MaxChecksLimit     = 200
)

// DefaultMaxUploadBytes bounds a POST /check_answer body when
// [Config.MaxUploadBytes] is unset.
const DefaultMaxUploadBytes = 10 << 20

// audioField is the multipart field carrying the recording.
const audioField = "audio"

// maxMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const maxMemory = 1 << 20

// Checker checks one recorded answer.
type Checker interface {
	Check(ctx context.Context, clip audio.Clip) answer.Result
}

// Config lists the components behind the routes. Nil optional components
// leave their routes unregistered.
type Config struct {
	// Vocabulary serves GET /words. Required.
	Vocabulary game.Source
	// Checker serves POST /check_answer. Required.
	Checker Checker
	// Journal serves GET /checks.
	Journal answer.Journal
	// Live serves GET /live.
	Live http.Handler
	// Health serves /healthz and /readyz.
	Health *health.Handler
	// Metrics serves GET /metrics.
	Metrics http.Handler
	// Observe records request metrics. Defaults to [observe.DefaultMetrics].
	Observe *observe.Metrics

	// StaticDir is served under /static/ and its index.html at /.
	StaticDir string
	// AllowedOrigins configures CORS. "*" allows any origin.
	AllowedOrigins []string
	// MaxUploadBytes bounds a POST /check_answer body.
	MaxUploadBytes int64
}

// Server is the HTTP front of wordgate.
type Server struct {
	cfg     Config
	handler http.Handler
}

// New validates cfg and builds the route table.
func New(cfg Config) (*Server, error) {
	var errs []error
	if cfg.Vocabulary == nil {
		errs = append(errs, errors.New("server: vocabulary source is required"))
	}
	if cfg.Checker == nil {
		errs = append(errs, errors.New("server: answer checker is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Observe == nil {
		cfg.Observe = observe.DefaultMetrics()
	}

	s := &Server{cfg: cfg}
	s.handler = observe.Middleware(cfg.Observe)(cors(cfg.AllowedOrigins)(s.routes()))
	return s, nil
}

// Handler returns the root handler with CORS and request metrics applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /words", s.handleWords)
	mux.HandleFunc("POST /check_answer", s.handleCheckAnswer)
	if s.cfg.Journal != nil {
		mux.HandleFunc("GET /checks", s.handleChecks)
	}
	if s.cfg.Live != nil {
		mux.Handle("GET /live", s.cfg.Live)
	}
	if s.cfg.Health != nil {
		s.cfg.Health.Register(mux)
	}
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}
	if dir := s.cfg.StaticDir; dir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
		mux.HandleFunc("GET /{$}", s.handleIndex)
	}
	return mux
}

// wordsResponse is the body of GET /words.
type wordsResponse struct {
	Words   []string          `json:"words"`
	Answers map[string]string `json:"answers"`
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	v, err := s.cfg.Vocabulary.Load(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("server: load vocabulary", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "vocabulary unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, wordsResponse{Words: v.Words, Answers: v.Answers})
}

// errorResponse is the body of a rejected request. Success is always false so
// browser clients can treat it like a failed check.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	clip, err := readClip(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		observe.Logger(r.Context()).Debug("server: rejected upload", "err", err)
		writeJSON(w, status, errorResponse{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.cfg.Checker.Check(r.Context(), clip))
}

// readClip extracts the audio field of a multipart upload. A part without a
// Content-Type header is sniffed later by the decoder.
func readClip(r *http.Request) (audio.Clip, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return audio.Clip{}, fmt.Errorf("invalid multipart body: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile(audioField)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("missing %q field", audioField)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("read %q field: %w", audioField, err)
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return audio.Clip{Data: data, ContentType: ct}, nil
}

// checksResponse is the body of GET /checks.
type checksResponse struct {
	Checks []answer.Record `json:"checks"`
}

func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	limit := DefaultChecksLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxChecksLimit)
	}

	recs, err := s.cfg.Journal.Recent(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("server: read journal", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "journal unavailable"})
		return
	}
	if recs == nil {
		recs = []answer.Record{}
	}
	writeJSON(w, http.StatusOK, checksResponse{Checks: recs})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
