package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoopflow/pkg/logger"
)

// Nothing listens on port 1, so the probe fails fast.
const unreachableDSN = "postgres://u:p@127.0.0.1:1/orders?sslmode=disable&connect_timeout=1"

func discardLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func TestOpenWithoutDatabase(t *testing.T) {
	s, err := Open(context.Background(), Options{}, discardLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "memory", s.Repository.Name())
	assert.False(t, s.Fallback)
}

func TestOpenFallsBack(t *testing.T) {
	s, err := Open(context.Background(), Options{
		DatabaseURL:    unreachableDSN,
		Fallback:       true,
		ConnectTimeout: 2 * time.Second,
	}, discardLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "memory", s.Repository.Name())
	assert.True(t, s.Fallback)
}

func TestOpenFailsFast(t *testing.T) {
	s, err := Open(context.Background(), Options{
		DatabaseURL:    unreachableDSN,
		Fallback:       false,
		ConnectTimeout: 2 * time.Second,
	}, discardLogger())
	assert.Error(t, err)
	assert.Nil(t, s)
}
