package isolation

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

// Session is one tenant-bound database connection, exclusively owned by the
// operation holding it until Close. The adapter applies the tenant binding
// before handing the session out, so every query issued through it is
// already scoped.
type Session struct {
	conn    *sql.Conn
	cleanup func(context.Context, *sql.Conn) error
	closed  bool
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// Close releases the tenant binding and returns the connection to its pool.
// Safe to call once per session; the binding is always cleared before the
// connection can be reused, even when cleanup fails, because a failed
// cleanup closes the raw connection instead of pooling it.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.cleanup != nil {
		if err := s.cleanup(ctx, s.conn); err != nil {
			// A connection whose binding could not be cleared must not
			// return to the pool carrying another tenant's identity.
			// ErrBadConn forces the pool to discard it.
			_ = s.conn.Raw(func(any) error { return driver.ErrBadConn })
			_ = s.conn.Close()
			return err
		}
	}
	return s.conn.Close()
}
