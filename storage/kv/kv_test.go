package kvstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/setup"
)

type store interface {
	setup.KVStore
}

func testStore(t *testing.T, s store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "key", "v1"))
	val, ok, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", val)

	require.NoError(t, s.Set(ctx, "key", "v2"))
	val, _, err = s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "v2", val)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	s, err := NewRedisStore(ctx, core.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	testStore(t, s)

	// the installed flag survives a new client
	svc := setup.NewService(s)
	require.NoError(t, svc.MarkInstalled(ctx))
	s2, err := NewRedisStore(ctx, core.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	installed, err := setup.NewService(s2).IsInstalled(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
}
