package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/config"
	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles msgpack IPC for completions
type Server struct {
	completer suggest.ICompleter
	limits    atomic.Pointer[config.ServerConfig]
	dec       *msgpack.Decoder
	enc       *msgpack.Encoder
	requests  atomic.Int64
}

type Option func(*Server)

// WithIO replaces stdin/stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.dec = msgpack.NewDecoder(r)
		s.enc = msgpack.NewEncoder(w)
	}
}

// NewServer creates a completion server using stdin/stdout for IPC
func NewServer(completer suggest.ICompleter, limits config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		completer: completer,
		dec:       msgpack.NewDecoder(os.Stdin),
		enc:       msgpack.NewEncoder(os.Stdout),
	}
	s.limits.Store(&limits)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLimits swaps the query limits; safe to call while serving.
func (s *Server) SetLimits(limits config.ServerConfig) {
	s.limits.Store(&limits)
}

// Requests returns how many messages have been handled.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Start writes the ready message and serves until the input ends.
func (s *Server) Start() error {
	log.Debug("Starting IPC server.")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("Input closed, stopping IPC server.")
				return nil
			}
			log.Errorf("Reading request: %v", err)
			return fmt.Errorf("read request: %w", err)
		}
		s.requests.Add(1)

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			log.Debugf("Unmarshaling request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}
		s.handleRequest(req)
	}
}

func (s *Server) handleRequest(req Request) {
	switch strings.ToLower(req.Action) {
	case "":
		s.handleComplete(req)
	case "add":
		s.handleAdd(req)
	case "lookup":
		s.handleLookup(req)
	case "health":
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "stats":
		s.send(StatsResponse{ID: req.ID, Status: "ok", Stats: s.completer.Stats()})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleComplete(req Request) {
	limits := s.limits.Load()
	prefix := strings.TrimSpace(req.Prefix)
	n := utf8.RuneCountInString(prefix)

	if n == 0 {
		s.send(CompletionResponse{ID: req.ID, Suggestions: []CompletionSuggestion{}})
		return
	}
	if n < limits.MinPrefix {
		s.sendError(req.ID, fmt.Sprintf("Prefix must be at least %d characters", limits.MinPrefix), 400)
		return
	}
	if n > limits.MaxPrefix {
		s.sendError(req.ID, fmt.Sprintf("Prefix exceeds maximum length of %d characters", limits.MaxPrefix), 400)
		return
	}

	limit := req.Limit
	if limit < 1 {
		limit = limits.DefaultLimit
	}
	limit = min(limit, limits.MaxLimit)

	start := time.Now()
	results, err := s.completer.Query(prefix, limit)
	elapsed := time.Since(start)
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}

	ranks := utils.CreateRankList(len(results))
	suggestions := make([]CompletionSuggestion, len(results))
	for i, r := range results {
		suggestions[i] = CompletionSuggestion{Word: r.Term, Heat: r.Heat, Rank: ranks[i]}
	}
	s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) handleAdd(req Request) {
	h, err := s.completer.AddOrBump(req.Term)
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}
	s.send(TermResponse{ID: req.ID, Status: "ok", Term: utils.Normalize(req.Term), Heat: h, Found: true})
}

func (s *Server) handleLookup(req Request) {
	h, ok, err := s.completer.Lookup(req.Term)
	if err != nil {
		s.sendQueryError(req.ID, err)
		return
	}
	s.send(TermResponse{ID: req.ID, Status: "ok", Term: utils.Normalize(req.Term), Heat: h, Found: ok})
}

func (s *Server) sendQueryError(id string, err error) {
	switch {
	case errors.Is(err, trie.ErrEmptyInput):
		s.sendError(id, "Term is required", 400)
	case errors.Is(err, trie.ErrMalformedCharacter):
		s.sendError(id, err.Error(), 400)
	default:
		log.Errorf("Request %s failed: %v", id, err)
		s.sendError(id, "Internal server error", 500)
	}
}

func (s *Server) send(response any) error {
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return err
	}
	return nil
}

func (s *Server) sendError(id, message string, code int) {
	s.send(CompletionError{ID: id, Error: message, Code: code})
}
