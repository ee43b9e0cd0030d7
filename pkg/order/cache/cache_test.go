package cache

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"scoopflow/pkg/logger"
	"scoopflow/pkg/order"
	"scoopflow/pkg/order/memory"
)

func discardLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

// countingRepo records how often Get reaches the wrapped store.
type countingRepo struct {
	order.Repository
	gets int
}

func (c *countingRepo) Get(ctx context.Context, id string) (order.Order, error) {
	c.gets++
	return c.Repository.Get(ctx, id)
}

func TestUnreachableRedisFallsThrough(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	inner := &countingRepo{Repository: memory.New()}
	repo := New(inner, rdb, time.Minute, discardLogger())
	assert.Equal(t, "memory+redis", repo.Name())

	created, err := repo.Create(ctx, order.Order{Status: order.StatusPending})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	updated, err := repo.UpdateStatus(ctx, created.ID, "ready")
	require.NoError(t, err)
	assert.Equal(t, "ready", updated.Status)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

// blockingRepo holds its first Get open until release is closed.
type blockingRepo struct {
	order.Repository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{
		Repository: memory.New(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingRepo) Get(ctx context.Context, id string) (order.Order, error) {
	o, err := b.Repository.Get(ctx, id)
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return o, err
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestCacheWithRedis(t *testing.T) {
	ctx := context.Background()
	rdb := startRedis(t)

	inner := &countingRepo{Repository: memory.New()}
	repo := New(inner, rdb, time.Minute, discardLogger())

	created, err := repo.Create(ctx, order.Order{Status: order.StatusPending, Price: 2})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 2.0, got.Price)
	}
	assert.Equal(t, 0, inner.gets, "reads should be served from redis")

	_, err = repo.UpdateStatus(ctx, created.ID, "delivered")
	require.NoError(t, err)
	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", got.Status)

	require.NoError(t, repo.Delete(ctx, created.ID))
	cached, err := rdb.Get(ctx, keyPrefix+created.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, tombstone, cached)
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestStaleFillLosesToConcurrentWrite(t *testing.T) {
	rdb := startRedis(t)

	tests := []struct {
		name  string
		write func(ctx context.Context, repo *Repository, id string) error
		check func(t *testing.T, got order.Order, err error)
	}{
		{
			name: "delete",
			write: func(ctx context.Context, repo *Repository, id string) error {
				return repo.Delete(ctx, id)
			},
			check: func(t *testing.T, _ order.Order, err error) {
				assert.ErrorIs(t, err, order.ErrNotFound)
			},
		},
		{
			name: "status update",
			write: func(ctx context.Context, repo *Repository, id string) error {
				_, err := repo.UpdateStatus(ctx, id, "delivered")
				return err
			},
			check: func(t *testing.T, got order.Order, err error) {
				require.NoError(t, err)
				assert.Equal(t, "delivered", got.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			inner := newBlockingRepo()
			repo := New(inner, rdb, time.Minute, discardLogger())

			created, err := repo.Create(ctx, order.Order{Status: order.StatusPending})
			require.NoError(t, err)
			// Force the next Get to miss and read from the inner store.
			require.NoError(t, rdb.Del(ctx, keyPrefix+created.ID).Err())

			done := make(chan error, 1)
			go func() {
				_, err := repo.Get(ctx, created.ID)
				done <- err
			}()

			<-inner.entered
			require.NoError(t, tt.write(ctx, repo, created.ID))
			close(inner.release)
			require.NoError(t, <-done)

			got, err := repo.Get(ctx, created.ID)
			tt.check(t, got, err)
		})
	}
}
