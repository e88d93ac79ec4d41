package isolation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"stratum/pkg/domain"
)

// sessionVar is the PostgreSQL setting RLS policies read to decide row
// visibility. Policies compare tenant_id to current_setting(sessionVar).
const sessionVar = "stratum.tenant_id"

// RLSManager owns database-side row filtering for the shared-pool
// strategies: it installs and verifies policies at bootstrap and binds the
// tenant session variable on every acquired connection before any query
// runs.
type RLSManager struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRLSManager(db *sql.DB, logger *slog.Logger) *RLSManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &RLSManager{db: db, logger: logger}
}

// InstallPolicies enables and forces row-level security and creates the
// tenant visibility policy on each table. FORCE matters: the bootstrap role
// owns these tables and serves the data-plane queries, and PostgreSQL does
// not apply RLS to the owner without it. Idempotent: re-running on an
// already provisioned database is a no-op.
//
// The policy has two branches. A session with the tenant variable bound sees
// only that tenant's rows. A session with the variable unset or cleared sees
// everything: that branch carries the elevated read path and bootstrap work,
// both of which run on deliberately unbound connections.
func (m *RLSManager) InstallPolicies(ctx context.Context, tables []string) error {
	const exists = `SELECT COUNT(*) FROM pg_policies WHERE tablename = $1 AND policyname = $2`

	for _, table := range tables {
		quoted := pq.QuoteIdentifier(table)
		policyName := table + "_tenant_visibility"

		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", quoted)); err != nil {
			return fmt.Errorf("enable rls on %s: %w", table, err)
		}
		if _, err := m.db.ExecContext(ctx,
			fmt.Sprintf("ALTER TABLE %s FORCE ROW LEVEL SECURITY", quoted)); err != nil {
			return fmt.Errorf("force rls on %s: %w", table, err)
		}

		var count int
		if err := m.db.QueryRowContext(ctx, exists, table, policyName).Scan(&count); err != nil {
			return fmt.Errorf("check rls policy on %s: %w", table, err)
		}
		if count > 0 {
			continue
		}

		create := fmt.Sprintf(
			"CREATE POLICY %s ON %s USING (NULLIF(current_setting('%s', true), '') IS NULL OR tenant_id = NULLIF(current_setting('%s', true), '')::uuid)",
			pq.QuoteIdentifier(policyName), quoted, sessionVar, sessionVar,
		)
		if _, err := m.db.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("install rls policy on %s: %w", table, err)
		}
		m.logger.InfoContext(ctx, "rls policy installed", "table", table)
	}
	return nil
}

// VerifyPolicies checks at bootstrap that every table has its tenant
// visibility policy. A missing policy is a fatal configuration error, not a
// runtime surprise.
func (m *RLSManager) VerifyPolicies(ctx context.Context, tables []string) error {
	const query = `SELECT COUNT(*) FROM pg_policies WHERE tablename = $1 AND policyname = $2`
	for _, table := range tables {
		var count int
		err := m.db.QueryRowContext(ctx, query, table, table+"_tenant_visibility").Scan(&count)
		if err != nil {
			return fmt.Errorf("verify rls policy on %s: %w", table, err)
		}
		if count == 0 {
			return &ConfigurationError{
				Key:    "rls",
				Value:  table,
				Reason: "row-level security policy is missing; run bootstrap before serving traffic",
			}
		}
	}
	return nil
}

// BindSession binds the tenant to the connection's session before any query
// runs on it. The third set_config argument is false so the binding lives
// for the session, not just the current transaction.
func (m *RLSManager) BindSession(ctx context.Context, conn *sql.Conn, tenantID domain.TenantID) error {
	_, err := conn.ExecContext(ctx, `SELECT set_config($1, $2, false)`, sessionVar, tenantID.String())
	if err != nil {
		return fmt.Errorf("bind tenant session: %w", err)
	}
	return nil
}

// ReleaseSession clears the tenant binding so a pooled connection never
// carries a stale tenant back into the pool.
func (m *RLSManager) ReleaseSession(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `SELECT set_config($1, '', false)`, sessionVar)
	if err != nil {
		return fmt.Errorf("release tenant session: %w", err)
	}
	return nil
}
