package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseFormatter(t *testing.T) {
	assert.Equal(t, log.JSONFormatter, ParseFormatter("JSON"))
	assert.Equal(t, log.LogfmtFormatter, ParseFormatter("logfmt"))
	assert.Equal(t, log.TextFormatter, ParseFormatter("anything"))
}

func TestNewWithConfigPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "store", log.InfoLevel, false, false, log.LogfmtFormatter)
	l.Info("flushed", "records", 3)
	assert.Contains(t, buf.String(), "prefix=store")
	assert.Contains(t, buf.String(), "records=3")

	buf.Reset()
	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestNewFollowsDefault(t *testing.T) {
	prev := log.Default()
	t.Cleanup(func() { log.SetDefault(prev) })

	var buf bytes.Buffer
	log.SetDefault(NewWithConfig(&buf, "", log.InfoLevel, false, false, log.JSONFormatter))

	l := New("http")
	l.Info("served", "status", 200)
	assert.Contains(t, buf.String(), `"prefix":"http"`)
	assert.Contains(t, buf.String(), `"msg":"served"`)

	buf.Reset()
	l.Debug("hidden")
	assert.Empty(t, buf.String())
}
