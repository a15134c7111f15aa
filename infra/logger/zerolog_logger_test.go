package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLogger_Fields(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
	require.NoError(t, SetLevel("debug"))

	var buf bytes.Buffer
	l := NewWithWriter("search", &buf)
	l.Debugw("generation", map[string]any{"generation": 3, "run_id": "r1"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "search", line["component"])
	assert.Equal(t, "generation", line["message"])
	assert.Equal(t, "r1", line["run_id"])
	assert.EqualValues(t, 3, line["generation"])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, SetLevel("WARN"))
	var buf bytes.Buffer
	l := NewWithWriter("x", &buf)
	l.Infof("hidden")
	l.Warnf("shown")
	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))

	assert.Error(t, SetLevel("loud"))
	assert.NoError(t, SetLevel(""))
}
