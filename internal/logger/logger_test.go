package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Run("info", func(t *testing.T) {
		log, err := New("info")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zap.InfoLevel))
		assert.False(t, log.Core().Enabled(zap.DebugLevel))
	})

	t.Run("debug", func(t *testing.T) {
		log, err := New("debug")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zap.DebugLevel))
	})

	t.Run("empty defaults to info", func(t *testing.T) {
		log, err := New("")
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zap.InfoLevel))
		assert.False(t, log.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		log, err := New("loud")
		require.Error(t, err)
		assert.Nil(t, log)
	})
}
