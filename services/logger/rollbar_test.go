package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/classbook/classbook/core/user"
	"github.com/classbook/classbook/testutil"
)

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs), testutil.NewConfig())

	usr := user.User{ID: "42", Username: "terry"}
	logger.Warn("cache unavailable", errors.New("dial tcp: refused"), map[string]interface{}{"key": "timetable:x"}, usr, usr)
	logger.Info("started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "cache unavailable", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dial tcp: refused", fields["error"])
	assert.Equal(t, "timetable:x", fields["key"])
	assert.Equal(t, "42", fields["user_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}
