package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/similar"
	"github.com/bastiangx/heatserve/pkg/trie"
)

type addTermRequest struct {
	Term string `json:"term"`
}

type addTermResponse struct {
	Message string `json:"message"`
	Heat    int    `json:"heat"`
}

type lookupResponse struct {
	Term  string `json:"term"`
	Heat  int    `json:"heat"`
	Found bool   `json:"found"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeIndexError maps index errors onto HTTP statuses.
func (s *Server) writeIndexError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trie.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "Term is required")
	case errors.Is(err, trie.ErrMalformedCharacter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Errorf("Index error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GET /api/search?q=&k= returns [[term, heat], ...].
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	limits := s.limits.Load()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, [][2]any{})
		return
	}
	n := utf8.RuneCountInString(q)
	if n < limits.MinPrefix {
		writeError(w, http.StatusBadRequest, "Query must be at least "+strconv.Itoa(limits.MinPrefix)+" characters")
		return
	}
	if n > limits.MaxPrefix {
		writeError(w, http.StatusBadRequest, "Query exceeds maximum length of "+strconv.Itoa(limits.MaxPrefix)+" characters")
		return
	}

	k := limits.DefaultLimit
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}
	k = min(k, limits.MaxLimit)

	results, err := s.index.Query(q, k)
	if err != nil {
		s.writeIndexError(w, err)
		return
	}
	s.metrics.served.Add(float64(len(results)))

	pairs := make([][2]any, len(results))
	for i, res := range results {
		pairs[i] = [2]any{res.Term, res.Heat}
	}
	writeJSON(w, http.StatusOK, pairs)
}

// POST /api/terms with {"term": "..."} adds or bumps a term.
func (s *Server) addTerm(w http.ResponseWriter, r *http.Request) {
	var req addTermRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		writeError(w, http.StatusBadRequest, "Term is required")
		return
	}

	h, err := s.index.AddOrBump(req.Term)
	if err != nil {
		s.writeIndexError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addTermResponse{Message: "Term added successfully", Heat: h})
}

// GET /api/terms lists every term by heat.
func (s *Server) listTerms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.index.Snapshot())
}

// GET /api/lookup?q= reports an exact term's heat.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	h, ok, err := s.index.Lookup(q)
	if err != nil {
		s.writeIndexError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{Term: utils.Normalize(q), Heat: h, Found: ok})
}

// GET /api/interval?q= returns [[term, score], ...] by edit similarity.
func (s *Server) interval(w http.ResponseWriter, r *http.Request) {
	q := utils.Normalize(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []similar.Match{})
		return
	}

	snapshot := s.index.Snapshot()
	terms := make([]string, len(snapshot))
	for i, e := range snapshot {
		terms[i] = e.Term
	}
	matches, err := similar.Search(q, terms, s.similar)
	if err != nil {
		s.logger.Errorf("Similarity search: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
