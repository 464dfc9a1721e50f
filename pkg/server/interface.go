/*
Package server implements msgpack IPC for heat-ranked completion.

Clients write msgpack maps to stdin and read msgpack maps from stdout. There
is no framing beyond the msgpack encoding itself. On start the server writes

	{"status": "ready"}

# Completion

A request without an action is a completion:

	{"id": "req_001", "p": "re", "l": 5}

The response lists suggestions best first, each with its heat and 1-based rank,
and the time taken in microseconds:

	{"id": "req_001", "s": [{"w": "react", "h": 7, "r": 1}, {"w": "redis", "h": 3, "r": 2}], "c": 2, "t": 41}

An omitted or non-positive limit takes server.default_limit; larger limits are
capped at server.max_limit. An empty prefix yields an empty list.

# Actions

	{"id": "a1", "action": "add", "term": "rust"}
	{"id": "a2", "action": "lookup", "term": "rust"}
	{"id": "a3", "action": "health"}
	{"id": "a4", "action": "stats"}

# Errors

Any failure is reported as {"id": ..., "e": "message", "c": code}, with 400
for bad input and 500 for internal errors.
*/
package server

// Request is any client message. Action selects the operation; when it is
// empty the message is a completion request.
type Request struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"action,omitempty"`
	Term   string `msgpack:"term,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Heat int    `msgpack:"h"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// TermResponse answers add and lookup.
type TermResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Term   string `msgpack:"term"`
	Heat   int    `msgpack:"heat"`
	Found  bool   `msgpack:"found"`
}

// StatusResponse answers health and the ready handshake.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// StatsResponse answers stats.
type StatsResponse struct {
	ID     string         `msgpack:"id"`
	Status string         `msgpack:"status"`
	Stats  map[string]int `msgpack:"stats"`
}

// CompletionError holds basic error information for any failed request
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
