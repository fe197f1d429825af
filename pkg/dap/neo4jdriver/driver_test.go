package neo4jdriver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/factlake/factlake/pkg/dap"
)

// newTestDriver starts a disposable Neo4j container and returns a Driver
// against it. Skips when FACTLAKE_SKIP_CONTAINER_TESTS is set, matching the
// escape hatch CI uses for environments without Docker.
func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	if os.Getenv("FACTLAKE_SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5-community",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/factlaketest",
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	cfg := Config{
		URI:      fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Database: "neo4j",
		Username: "neo4j",
		Password: "factlaketest",
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	d, err := Open(ctx, log, cfg, clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })
	return d
}

func TestNeo4jDriver_Conformance(t *testing.T) {
	d := newTestDriver(t)
	dap.RunConformanceSuite(t, d)
}
