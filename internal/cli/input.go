// Package cli handles cmd line input for trying the index interactively.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/heatserve/internal/logger"
	"github.com/bastiangx/heatserve/internal/utils"
	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// InputHandler reads lines and answers them against the index:
//
//	re       prefix query
//	+rust    add rust, or bump it if known
//	=rust    exact lookup
//	:stats   index counters
type InputHandler struct {
	completer       suggest.ICompleter
	in              io.Reader
	out             *log.Logger
	minPrefixLength int
	maxPrefixLength int
	suggestLimit    int
	requestCount    int
}

type Option func(*InputHandler)

// WithIO replaces stdin and the stderr logger.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(h *InputHandler) {
		h.in = r
		h.out = logger.NewWithConfig(w, "", log.InfoLevel, false, false, log.TextFormatter)
	}
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(completer suggest.ICompleter, minLength, maxLength, limit int, opts ...Option) *InputHandler {
	h := &InputHandler{
		completer:       completer,
		in:              os.Stdin,
		out:             log.Default(),
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the loop until the input ends.
func (h *InputHandler) Start() error {
	h.out.Print("heatserve CLI")
	h.out.Print("type a prefix, +term to add, =term to look up, :stats for counters (Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for {
		h.out.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h.handleInput(line)
	}
}

// Requests returns how many non-empty lines were handled.
func (h *InputHandler) Requests() int { return h.requestCount }

func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	switch {
	case line == ":stats":
		h.printStats()
	case strings.HasPrefix(line, "+"):
		h.add(line[1:])
	case strings.HasPrefix(line, "="):
		h.lookup(line[1:])
	default:
		h.query(line)
	}
}

func (h *InputHandler) query(prefix string) {
	n := utf8.RuneCountInString(prefix)
	if n < h.minPrefixLength {
		h.out.Errorf("Prefix too short: %s", prefix)
		return
	}
	if n > h.maxPrefixLength {
		h.out.Errorf("Prefix too long: %s", prefix)
		return
	}

	start := time.Now()
	suggestions, err := h.completer.Query(prefix, h.suggestLimit)
	log.Debugf("Took [ %v ] for prefix '%s'", time.Since(start), prefix)
	if err != nil {
		h.out.Errorf("Query failed: %v", err)
		return
	}
	if len(suggestions) == 0 {
		h.out.Warnf("No suggestions found for prefix: '%s'", prefix)
		return
	}

	h.out.Printf("Found %d suggestions for prefix '%s':", len(suggestions), prefix)
	for i, s := range suggestions {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Term)
		h.out.Printf("%2d. %-40s (heat: %8s)", i+1, clWord, utils.FormatWithCommas(s.Heat))
	}
}

func (h *InputHandler) add(term string) {
	heat, err := h.completer.AddOrBump(term)
	if err != nil {
		h.out.Errorf("Add failed: %v", err)
		return
	}
	h.out.Printf("%s -> heat %s", utils.Normalize(term), utils.FormatWithCommas(heat))
}

func (h *InputHandler) lookup(term string) {
	heat, ok, err := h.completer.Lookup(term)
	if err != nil {
		h.out.Errorf("Lookup failed: %v", err)
		return
	}
	if !ok {
		h.out.Warnf("Not found: '%s'", utils.Normalize(term))
		return
	}
	h.out.Printf("%s = heat %s", utils.Normalize(term), utils.FormatWithCommas(heat))
}

func (h *InputHandler) printStats() {
	stats := h.completer.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.out.Printf("%-12s %s", k, utils.FormatWithCommas(stats[k]))
	}
}
