package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file mutate package state and must not run in parallel.

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "level=WARN")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	SetLevel("info")

	InfoBlock("\nfirst\nsecond\n")
	out := strings.TrimSpace(buf.String())
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")
}

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	closer, err := Setup(Options{Level: "debug", File: path, MaxSizeMB: 1, Quiet: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})

	Debugf("to file %s", "ok")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file ok")
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("DEBUG"))
	assert.True(t, ValidLevel(""))
	assert.False(t, ValidLevel("verbose"))
}
