package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerFiltersBelowMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	require.Empty(t, buf.String())

	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "warn 3")
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "error 4")
}

func TestNonFileWriterIsNeverColorized(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)
	l.Infof("plain")
	require.False(t, strings.Contains(buf.String(), "\x1b["))
}
