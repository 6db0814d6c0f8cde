package docstore_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kidventure/kidventure/internal/docstore"
)

func TestNewRedis_NilClient(t *testing.T) {
	if _, err := docstore.NewRedis(nil, ""); err == nil {
		t.Fatal("NewRedis(nil) should return error")
	}
}

func TestRedis_Conformance(t *testing.T) {
	client := startRedis(t)

	runConformance(t, func(t *testing.T) docstore.Store {
		s, err := docstore.NewRedis(client, uniquePrefix(t))
		if err != nil {
			t.Fatalf("NewRedis() error = %v", err)
		}
		return s
	})
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}
