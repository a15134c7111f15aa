//go:build !no_containers

package runlog

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(ctx context.Context, t *testing.T, req tc.ContainerRequest, port string) string {
	t.Helper()
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mapped, err := cont.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestRedisStore_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	ctx := context.Background()
	addr := startContainer(ctx, t, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}, "6379")

	s, err := NewRedisStore(ctx, "redis://"+addr+"/0", "test:runs")
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	defer s.Close()
	exercise(t, s)
}

func TestPostgresStore_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	ctx := context.Background()
	addr := startContainer(ctx, t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "vpp",
			"POSTGRES_PASSWORD": "vpp",
			"POSTGRES_DB":       "vpp",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")

	s, err := NewPostgresStore(ctx, "postgres://vpp:vpp@"+addr+"/vpp?sslmode=disable")
	if err != nil {
		t.Fatalf("postgres store: %v", err)
	}
	defer s.Close()
	exercise(t, s)
}
