package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"other", logrus.InfoLevel},
	} {
		l := logrus.New()
		SetLogLevel(l, tt.in)
		assert.Equal(t, tt.want, l.GetLevel(), tt.in)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "json")
	l.WithField("operation", "Ingest").Info("done")
	l.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Ingest", entry["operation"])
	assert.Equal(t, "done", entry["msg"])
	assert.NotContains(t, buf.String(), "hidden")
}
