package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func exerciseClient(t *testing.T, c Client) {
	ctx := context.Background()

	_, err := c.Get(ctx, "tenant:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "tenant:acme", []byte(`{"tenantId":"acme"}`), time.Minute))
	got, err := c.Get(ctx, "tenant:acme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenantId":"acme"}`, string(got))

	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryClient(t *testing.T) {
	c, err := New(context.Background(), Config{Driver: "memory", Prefix: "fw", DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)
}

func TestRedisClient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := New(ctx, Config{Driver: "redis", Addr: endpoint, Prefix: "fw", DefaultTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	exerciseClient(t, c)
}
