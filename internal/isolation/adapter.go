package isolation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"stratum/pkg/domain"
)

// Adapter scopes connections to one (tenant, strategy) pair. Adapters are
// built lazily by the Factory, cached, and evicted after an idle TTL or on
// explicit tenant deactivation.
type Adapter interface {
	TenantID() domain.TenantID
	Strategy() Strategy

	// Acquire hands out a tenant-bound session. The wait for a pool slot is
	// bounded; expiry returns *PoolExhaustedError rather than blocking.
	Acquire(ctx context.Context) (*Session, error)

	// Healthy verifies the adapter's underlying pool is reachable.
	Healthy(ctx context.Context) error

	// Close releases resources the adapter owns. Shared-pool adapters only
	// drop their cache entry; DatabaseLevel adapters close their pool.
	Close() error
}

// acquireConn checks a connection out of db within the bounded wait. A
// timeout of the wait itself maps to *PoolExhaustedError; caller
// cancellation propagates untouched and database/sql returns any partially
// acquired slot to the pool.
func acquireConn(ctx context.Context, db *sql.DB, tenantID domain.TenantID, wait time.Duration) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	conn, err := db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &PoolExhaustedError{TenantID: tenantID, Wait: wait}
		}
		return nil, fmt.Errorf("acquire connection for tenant %s: %w", tenantID, err)
	}
	return conn, nil
}

// tableAdapter serves the TableLevel strategy: the shared pool plus an RLS
// session binding. Query-side tenant predicates are the repository's job;
// the binding gives the database its own second check.
type tableAdapter struct {
	tenantID domain.TenantID
	shared   *sql.DB
	rls      *RLSManager
	wait     time.Duration
}

func (a *tableAdapter) TenantID() domain.TenantID { return a.tenantID }
func (a *tableAdapter) Strategy() Strategy        { return TableLevel }

func (a *tableAdapter) Acquire(ctx context.Context) (*Session, error) {
	conn, err := acquireConn(ctx, a.shared, a.tenantID, a.wait)
	if err != nil {
		return nil, err
	}
	if err := a.rls.BindSession(ctx, conn, a.tenantID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Session{conn: conn, cleanup: a.rls.ReleaseSession}, nil
}

func (a *tableAdapter) Healthy(ctx context.Context) error { return a.shared.PingContext(ctx) }
func (a *tableAdapter) Close() error                      { return nil }

// schemaAdapter serves the SchemaLevel strategy: the shared pool with the
// connection's search_path switched to the tenant's schema. Queries stay
// unqualified, identical to single-tenant SQL.
type schemaAdapter struct {
	tenantID domain.TenantID
	schema   string
	shared   *sql.DB
	rls      *RLSManager
	wait     time.Duration
}

func (a *schemaAdapter) TenantID() domain.TenantID { return a.tenantID }
func (a *schemaAdapter) Strategy() Strategy        { return SchemaLevel }

func (a *schemaAdapter) Acquire(ctx context.Context) (*Session, error) {
	conn, err := acquireConn(ctx, a.shared, a.tenantID, a.wait)
	if err != nil {
		return nil, err
	}
	setPath := fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(a.schema))
	if _, err := conn.ExecContext(ctx, setPath); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set search_path for tenant %s: %w", a.tenantID, err)
	}
	if err := a.rls.BindSession(ctx, conn, a.tenantID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Session{conn: conn, cleanup: a.release}, nil
}

func (a *schemaAdapter) release(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, "SET search_path TO DEFAULT"); err != nil {
		return fmt.Errorf("reset search_path: %w", err)
	}
	return a.rls.ReleaseSession(ctx, conn)
}

func (a *schemaAdapter) Healthy(ctx context.Context) error { return a.shared.PingContext(ctx) }
func (a *schemaAdapter) Close() error                      { return nil }

// databaseAdapter serves the DatabaseLevel strategy: a dedicated pool bound
// to the tenant's own database. No predicate or session binding is needed;
// the connection cannot reach any other tenant's rows.
type databaseAdapter struct {
	tenantID domain.TenantID
	db       *sql.DB
	wait     time.Duration
}

func (a *databaseAdapter) TenantID() domain.TenantID { return a.tenantID }
func (a *databaseAdapter) Strategy() Strategy        { return DatabaseLevel }

func (a *databaseAdapter) Acquire(ctx context.Context) (*Session, error) {
	conn, err := acquireConn(ctx, a.db, a.tenantID, a.wait)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn}, nil
}

func (a *databaseAdapter) Healthy(ctx context.Context) error { return a.db.PingContext(ctx) }
func (a *databaseAdapter) Close() error                      { return a.db.Close() }

// Stats exposes the owned pool for the factory's ops surface.
func (a *databaseAdapter) Stats() sql.DBStats { return a.db.Stats() }
