package core

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("evalsession", WithOutput(&buf))

	logger.Info("session created", map[string]interface{}{"session_id": "abc"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "evalsession", entry["service"])
	assert.Equal(t, "framework", entry["component"])
	assert.Equal(t, "session created", entry["message"])
	assert.Equal(t, "abc", entry["session_id"])
}

func TestProductionLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("evalsession", WithOutput(&buf), WithFormat("text"))

	logger.Warn("worker restarted", map[string]interface{}{"signal": "SIGKILL"})

	line := buf.String()
	assert.Contains(t, line, "[WARN]")
	assert.Contains(t, line, "evalsession/framework")
	assert.Contains(t, line, "worker restarted")
	assert.Contains(t, line, "signal=SIGKILL")
}

func TestProductionLoggerDebugGatedByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("evalsession", WithOutput(&buf))

	logger.Debug("should not appear", nil)
	assert.Empty(t, buf.String())

	buf.Reset()
	debugLogger := NewProductionLogger("evalsession", WithOutput(&buf), WithDebug(true))
	debugLogger.Debug("should appear", nil)
	assert.NotEmpty(t, buf.String())
}

func TestProductionLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewProductionLogger("evalsession", WithOutput(&buf))

	scoped := base.WithComponent("session/controller")
	scoped.Info("worker online", nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session/controller", entry["component"])

	buf.Reset()
	base.Info("unscoped", nil)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "framework", entry["component"])
}

func TestProductionLoggerImplementsComponentAwareLogger(t *testing.T) {
	var _ ComponentAwareLogger = NewProductionLogger("evalsession")
}

func TestProductionLoggerWithContextNoRegistry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("evalsession", WithOutput(&buf))

	// No global metrics registry installed: should not panic, and baggage
	// fields should simply be absent.
	logger.InfoWithContext(context.Background(), "no registry", nil)
	assert.True(t, strings.Contains(buf.String(), "no registry"))
}
