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
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With(String("system", "hibernation"))

	logger.Debug("hibernate pending", ObjectID(7), Mask("old", 1), Mask("new", 0), Error(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "hibernation", fields["system"])
	assert.Equal(t, uint64(7), fields["object_id"])
	assert.Equal(t, uint32(1), fields["old"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Info("ignored", Int("n", 1))
	assert.NotNil(t, logger.Named("child"))
}
