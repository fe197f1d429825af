// Package neo4jdriver is the primary Data Access Port reference driver,
// backing pkg/dap.DAP with a Cypher-speaking graph database over a pooled
// driver connection. Every statement is parameterized; none are built by
// string interpolation of caller-supplied values.
package neo4jdriver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

// Config holds connection parameters for the reference driver, matching
// the environment-variable shape of api/config/neo4j.go: URI, database
// name, and basic-auth credentials.
type Config struct {
	URI      string
	Database string
	Username string
	Password string
}

// Driver implements dap.DAP against a Neo4j (or any Bolt/Cypher-compatible)
// graph database.
type Driver struct {
	log      *slog.Logger
	driver   neo4j.DriverWithContext
	database string
	idGen    *idgen.Generator
	clock    clockwork.Clock
}

var _ dap.DAP = (*Driver)(nil)

// Open constructs a Driver and verifies connectivity; api/config/neo4j.go's
// LoadStore calls it with settings read from the environment. clock defaults to clockwork.NewRealClock
// when nil; tests pass a clockwork.FakeClock to pin recorded_at/valid_from.
func Open(ctx context.Context, log *slog.Logger, cfg Config, clock clockwork.Clock) (*Driver, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: creating neo4j driver: %v", dap.ErrStoreUnavailable, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verifying neo4j connectivity: %v", dap.ErrStoreUnavailable, err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	log.Info("connected to neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Driver{
		log:      log,
		driver:   driver,
		database: cfg.Database,
		idGen:    idgen.NewGenerator(clock),
		clock:    clock,
	}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", dap.ErrStoreUnavailable, err)
	}
	return nil
}

func (d *Driver) session(ctx context.Context) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})
}

// retryableWrite wraps a single Cypher transaction with exponential backoff
// for transient store-unavailable conditions, using cenkalti/backoff/v4 in
// place of the teacher's hand-rolled retry loop. Read and write calls both
// go through it.
func (d *Driver) retryableWrite(ctx context.Context, fn func() (any, error)) (any, error) {
	var result any
	op := func() error {
		var err error
		result, err = fn()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.WithContext(retryPolicy(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, classifyErr(err)
	}
	return result, nil
}

func retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func isRetryable(err error) bool {
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		return neo4jErr.IsRetriable()
	}
	return false
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", dap.ErrStoreUnavailable, err)
}

func strOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

func asOptString(v any) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case neo4j.Time:
		return t.Time()
	case neo4j.LocalDateTime:
		return t.Time()
	default:
		return time.Time{}
	}
}

func asOptTime(v any) *time.Time {
	if v == nil {
		return nil
	}
	t := asTime(v)
	return &t
}
