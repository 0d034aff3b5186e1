package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/log"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PORT", "9090")

	cfg, logger, err := LoadConfig(log.ComponentWorker)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, log.ComponentWorker, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestLoadConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	cfg, logger, err := LoadConfig(log.ComponentApp)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.NotNil(t, logger)
}

func TestGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan bool, 1)

	done := GracefulShutdown(ctx, log.New(log.Config{Output: io.Discard}), time.Second, func(sctx context.Context) error {
		_, hasDeadline := sctx.Deadline()
		called <- hasDeadline
		return errors.New("ignored")
	})

	select {
	case <-called:
		t.Fatal("shutdown ran before the context ended")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.True(t, <-called)
}
