package duckdriver

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/factlake/factlake/pkg/dap"
)

func TestDuckDriver_Conformance(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	d, err := Open(ctx, log, ":memory:", clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(ctx) })

	dap.RunConformanceSuite(t, d)
}
