package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "****", MaskToken("abc"))
	assert.Equal(t, "9944****d7b9", MaskToken("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b7d7b9"))
}

func TestComponent_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	log := FromWriter(&buf, zerolog.DebugLevel).Component("statsclient")

	log.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "statsclient", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestGet_NopBeforeInit(t *testing.T) {
	Global = nil
	l := Get()
	require.NotNil(t, l)
	l.Info().Msg("discarded")
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := New("debug", path)
	require.NoError(t, err)
	l.Debug().Msg("to file")

	assert.FileExists(t, path)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New("loud", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}
