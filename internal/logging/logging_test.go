package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(true, &buf)
	log.Debug("invoke", zap.String("fn", "f4"), zap.Int("argc", 4))

	out := buf.String()
	require.Contains(t, out, "DEBUG")
	require.Contains(t, out, "invoke")
	require.Contains(t, out, `"fn": "f4"`)
	require.Contains(t, out, `"argc": 4`)
}

func TestInfoLevelHidesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(false, &buf)
	log.Debug("hidden")
	log.Info("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}
