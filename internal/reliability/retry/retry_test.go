package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func fastConfig(attempts int) *Config {
	return &Config{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), discard, "probe", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	_, err := Do(context.Background(), fastConfig(2), discard, "probe", func(context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 1}

	calls := 0
	_, err := Do(ctx, cfg, discard, "probe", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff_Capped(t *testing.T) {
	cfg := &Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, calculateBackoff(0, cfg))
	assert.Equal(t, 4*time.Second, calculateBackoff(2, cfg))
	assert.Equal(t, 5*time.Second, calculateBackoff(5, cfg))
}
