package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelSilent, ParseLevel("off"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "error", LevelError.String())
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core), LevelDebug)

	l.With(String("entity", "root")).Warn("resolve failed",
		Int("count", 2),
		Bool("cascade", true),
		Strings("types", []string{"Pos"}),
		Error(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "resolve failed", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "root", ctx["entity"])
	assert.Equal(t, int64(2), ctx["count"])
	assert.Equal(t, true, ctx["cascade"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLoggerLevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core), LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Error("shown")
	assert.Equal(t, 1, logs.Len())

	l.SetLevel(LevelSilent)
	l.Error("hidden")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, LevelSilent, l.GetLevel())

	l.SetLevel(LevelDebug)
	l.Debug("shown")
	assert.Equal(t, 2, logs.Len())
}

func TestNewBuildsFromConfig(t *testing.T) {
	l, err := New(Config{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l.GetLevel())

	_, err = New(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Named("ecs").Info("dropped")
	assert.Equal(t, LevelInfo, l.GetLevel())
}
