package config

import (
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/factlake/factlake/pkg/lock"
	"github.com/factlake/factlake/pkg/specs"
)

// Log is the process-wide structured logger, threaded into every handler
// and into the ingestion engine.
var Log *slog.Logger

// Clock is the process-wide time source. Production wiring uses a real
// clock; nothing in the API layer fakes it.
var Clock clockwork.Clock = clockwork.NewRealClock()

// Specs is the registry of ingestion specs backing CreateImport's
// spec_name lookups.
var Specs *specs.IngestionRegistry

// Schemas is the registry of domain schemas, keyed by workspace_id.
var Schemas *specs.Registry

// Locker serializes import runs per workspace. Set by LoadLocker to
// either a PostgresLocker or an InProcessLocker depending on deployment.
var Locker lock.Locker
