package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"product-studio/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = NewNopLogger()
}

func TestLogrusLogger_WithContextAddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("debug", "json", &buf)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "save")
	log.WithContext(ctx).Info("saved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "save", entry["operation"])
	assert.Equal(t, "saved", entry["msg"])
}

func TestLogrusLogger_WithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("info", "json", &buf)

	log.WithComponent("settings").WithFields(map[string]interface{}{"size": 3}).Infof("payload %d", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "settings", entry["component"])
	assert.Equal(t, float64(3), entry["size"])
	assert.Equal(t, "payload 3", entry["msg"])
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("warn", "text", &buf)
	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}
