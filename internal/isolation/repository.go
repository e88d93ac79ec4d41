package isolation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"stratum/internal/audit"
	"stratum/internal/isolation/metrics"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
)

// Entity is anything the scoped repository can persist.
type Entity interface {
	EntityID() uuid.UUID
}

// RowScanner abstracts *sql.Row / *sql.Rows for mappers.
type RowScanner interface {
	Scan(dest ...any) error
}

// Mapper describes how an entity type maps onto its table. One mapper serves
// all three strategies; the repository decides which parts apply.
type Mapper[T Entity] interface {
	// Table is the unqualified table name. Under SchemaLevel the adapter's
	// search_path qualifies it; under DatabaseLevel the pool does.
	Table() string
	// Columns is the ordered column list, id first.
	Columns() []string
	// Values returns the entity's values aligned with Columns.
	Values(entity T) []any
	// Scan builds an entity from a row in Columns order.
	Scan(row RowScanner) (T, error)
	// TenantColumn names the physical tenant key, or "" when the strategy's
	// physical model carries none.
	TenantColumn() string
	// TenantOf reads the entity's tenant key. Only called when
	// TenantColumn is non-empty.
	TenantOf(entity T) domain.TenantID
	// WithTenant returns a copy of the entity stamped with the tenant.
	WithTenant(entity T, tenantID domain.TenantID) T
}

// Repository is the single entry point business code uses for CRUD. The four
// methods have identical signatures regardless of the configured strategy;
// that uniformity is this subsystem's entire reason for existing.
type Repository[T Entity] struct {
	factory *Factory
	mapper  Mapper[T]
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics

	allowed map[string]bool
}

type repoConfig struct {
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

type RepositoryOption func(*repoConfig)

func WithRepositoryLogger(logger *slog.Logger) RepositoryOption {
	return func(c *repoConfig) { c.logger = logger }
}

func WithRepositoryAuditor(auditor AuditPublisher) RepositoryOption {
	return func(c *repoConfig) { c.auditor = auditor }
}

func WithRepositoryMetrics(m *metrics.Metrics) RepositoryOption {
	return func(c *repoConfig) { c.metrics = m }
}

func NewRepository[T Entity](factory *Factory, mapper Mapper[T], opts ...RepositoryOption) *Repository[T] {
	cfg := repoConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	allowed := make(map[string]bool, len(mapper.Columns()))
	for _, col := range mapper.Columns() {
		allowed[col] = true
	}
	return &Repository[T]{
		factory: factory,
		mapper:  mapper,
		logger:  cfg.logger,
		auditor: cfg.auditor,
		metrics: cfg.metrics,
		allowed: allowed,
	}
}

// scope extracts and checks the operation's isolation scope. Tenant-scoped
// methods refuse elevated scopes so a bypass is never the default path.
func (r *Repository[T]) scope(ctx context.Context, op string) (Scope, error) {
	sc, err := FromContext(ctx)
	if err != nil {
		return Scope{}, &MissingScopeError{Op: op}
	}
	if sc.Elevated() {
		return Scope{}, fmt.Errorf("%s: %w", op, ErrElevatedScope)
	}
	return sc, nil
}

// FindByID returns the entity or sentinel.ErrNotFound. Before returning, the
// row's tenant key (when the physical model has one) is asserted against the
// scope; a mismatch is raised as *CrossTenantAccessError because it
// indicates a defect elsewhere and must not be swallowed.
func (r *Repository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	op := r.mapper.Table() + ".FindByID"
	sc, err := r.scope(ctx, op)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", sc.TenantID().String()))
	start := time.Now()
	defer r.metrics.ObserveQuery("find_by_id", start)

	session, err := r.session(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1",
		strings.Join(r.mapper.Columns(), ", "), r.mapper.Table())
	if col := r.tenantPredicateColumn(sc); col != "" {
		args = append(args, uuid.UUID(sc.TenantID()))
		query += fmt.Sprintf(" AND %s = $2", col)
	}

	row := session.QueryRowContext(ctx, query, args...)
	entity, err := r.mapper.Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.guardTenant(ctx, op, sc, entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindMany returns at most Filter.Limit (bounded by DefaultLimit) rows
// matching the filter. Caller predicates are ANDed with the implicit tenant
// predicate under TableLevel, never OR'd or overridable.
func (r *Repository[T]) FindMany(ctx context.Context, filter Filter) ([]T, error) {
	op := r.mapper.Table() + ".FindMany"
	sc, err := r.scope(ctx, op)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", sc.TenantID().String()))
	start := time.Now()
	defer r.metrics.ObserveQuery("find_many", start)

	session, err := r.session(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	conds := filter.Conds
	if col := r.tenantPredicateColumn(sc); col != "" {
		conds = append([]Cond{{Column: col, Op: OpEq, Value: uuid.UUID(sc.TenantID())}}, conds...)
	}
	return r.findWith(ctx, op, session, conds, filter)
}

func (r *Repository[T]) findWith(ctx context.Context, op string, session *Session, conds []Cond, filter Filter) ([]T, error) {
	where, args, err := buildWhere(conds, r.allowed, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tail, err := buildTail(filter, r.allowed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(r.mapper.Columns(), ", "), r.mapper.Table())
	if where != "" {
		query += " WHERE " + where
	}
	query += tail

	rows, err := session.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		entity, err := r.mapper.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Save upserts the entity. When the physical model carries a tenant key it
// is stamped from the scope, overwriting whatever the entity arrived with: a
// caller can never write another tenant's key.
func (r *Repository[T]) Save(ctx context.Context, entity T) (*T, error) {
	op := r.mapper.Table() + ".Save"
	sc, err := r.scope(ctx, op)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", sc.TenantID().String()))
	start := time.Now()
	defer r.metrics.ObserveQuery("save", start)

	if r.mapper.TenantColumn() != "" {
		entity = r.mapper.WithTenant(entity, sc.TenantID())
	}

	session, err := r.session(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	cols := r.mapper.Columns()
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		r.mapper.Table(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	if _, err := session.ExecContext(ctx, query, r.mapper.Values(entity)...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entity, nil
}

// Delete removes the entity, scoped like every read. Deleting a row that
// does not exist for this tenant returns sentinel.ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	op := r.mapper.Table() + ".Delete"
	sc, err := r.scope(ctx, op)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", sc.TenantID().String()))
	start := time.Now()
	defer r.metrics.ObserveQuery("delete", start)

	session, err := r.session(ctx, sc)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	args := []any{id}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.mapper.Table())
	if col := r.tenantPredicateColumn(sc); col != "" {
		args = append(args, uuid.UUID(sc.TenantID()))
		query += fmt.Sprintf(" AND %s = $2", col)
	}

	result, err := session.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindManyAcross is the explicit cross-tenant read path for platform
// operations. It requires an elevated scope, skips tenant binding entirely,
// and is audited exactly once per call.
func (r *Repository[T]) FindManyAcross(ctx context.Context, filter Filter) ([]T, error) {
	op := r.mapper.Table() + ".FindManyAcross"
	sc, err := FromContext(ctx)
	if err != nil {
		return nil, &MissingScopeError{Op: op}
	}
	if !sc.Elevated() {
		return nil, fmt.Errorf("%s: %w", op, ErrElevationRequired)
	}
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	start := time.Now()
	defer r.metrics.ObserveQuery("find_many_across", start)
	r.metrics.RecordElevatedOperation()

	if r.auditor != nil {
		event := audit.Event{
			Action:   audit.ActionElevatedQuery,
			Resource: r.mapper.Table(),
		}
		if err := r.auditor.Emit(ctx, event); err != nil {
			return nil, fmt.Errorf("%s: audit: %w", op, err)
		}
	}

	session, err := r.factory.ElevatedSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer session.Close(ctx)

	return r.findWith(ctx, op, session, filter.Conds, filter)
}

// session resolves the tenant's adapter and acquires a bound connection.
func (r *Repository[T]) session(ctx context.Context, sc Scope) (*Session, error) {
	adapter, err := r.factory.Adapter(ctx, sc.TenantID())
	if err != nil {
		return nil, err
	}
	start := time.Now()
	session, err := adapter.Acquire(ctx)
	r.metrics.ObserveAcquireWait(start)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// tenantPredicateColumn returns the column to predicate on, or "" when the
// strategy isolates physically. Only TableLevel rides on query predicates.
func (r *Repository[T]) tenantPredicateColumn(sc Scope) string {
	switch sc.Strategy() {
	case TableLevel:
		return r.mapper.TenantColumn()
	case SchemaLevel, DatabaseLevel:
		return ""
	default:
		return ""
	}
}

// guardTenant asserts a fetched row belongs to the scope's tenant. Raised,
// audited and counted rather than silently filtered: a mismatch means a
// defect elsewhere in the routing layer.
func (r *Repository[T]) guardTenant(ctx context.Context, op string, sc Scope, entity T) error {
	if r.mapper.TenantColumn() == "" {
		return nil
	}
	actual := r.mapper.TenantOf(entity)
	if actual == sc.TenantID() {
		return nil
	}
	r.metrics.RecordCrossTenantViolation()
	r.logger.ErrorContext(ctx, "cross-tenant row surfaced",
		"op", op,
		"expected_tenant", sc.TenantID().String(),
		"actual_tenant", actual.String(),
	)
	if r.auditor != nil {
		_ = r.auditor.Emit(ctx, audit.Event{
			TenantID: sc.TenantID().String(),
			Action:   audit.ActionCrossTenantViolation,
			Resource: r.mapper.Table(),
			Reason:   "row tenant " + actual.String(),
		})
	}
	return &CrossTenantAccessError{Op: op, Expected: sc.TenantID(), Actual: actual}
}
