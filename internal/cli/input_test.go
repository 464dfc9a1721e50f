package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/heatserve/pkg/suggest"
	"github.com/bastiangx/heatserve/pkg/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputLoop(t *testing.T) {
	svc := suggest.New()
	svc.LoadFromRecords([]trie.Entry{{Term: "react", Heat: 1200}, {Term: "redis", Heat: 3}})

	input := strings.Join([]string{
		"re",
		"",
		"+Rust",
		"+rust",
		"=rust",
		"=zig",
		"xyz",
		":stats",
	}, "\n")
	var out bytes.Buffer
	h := NewInputHandler(svc, 1, 60, 5, WithIO(strings.NewReader(input), &out))
	require.NoError(t, h.Start())
	assert.Equal(t, 7, h.Requests())

	got := out.String()
	assert.Contains(t, got, "Found 2 suggestions for prefix 're'")
	assert.Contains(t, got, "1,200")
	assert.Contains(t, got, "rust -> heat 2")
	assert.Contains(t, got, "rust = heat 2")
	assert.Contains(t, got, "Not found: 'zig'")
	assert.Contains(t, got, "No suggestions found for prefix: 'xyz'")
	assert.Contains(t, got, "totalTerms")

	h2, _, err := svc.Lookup("react")
	require.NoError(t, err)
	assert.Equal(t, 1201, h2)
}

func TestPrefixBounds(t *testing.T) {
	svc := suggest.New()
	var out bytes.Buffer
	h := NewInputHandler(svc, 2, 3, 5, WithIO(strings.NewReader("r\nreact\n"), &out))
	require.NoError(t, h.Start())
	assert.Contains(t, out.String(), "Prefix too short: r")
	assert.Contains(t, out.String(), "Prefix too long: react")
}
