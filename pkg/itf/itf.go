// Package itf provides test fixtures for exercising services without a
// running database. Repositories under test are in-memory; a no-op
// transaction is placed in the context so transactional service code runs
// its callback directly.
package itf

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/clearchange/moc-tracker/modules/core/domain/aggregates/user"
	"github.com/clearchange/moc-tracker/pkg/composables"
)

type TestContext struct {
	ctx context.Context
}

// NewTestContext builds a base context carrying a logger and a no-op
// transaction.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	ctx := composables.WithLogger(context.Background(), logrus.NewEntry(logger))
	ctx = composables.WithTx(ctx, nopTx{})
	return &TestContext{ctx: ctx}
}

// WithUser returns a copy of the context authenticated as the given user.
func (tc *TestContext) WithUser(u user.User) *TestContext {
	return &TestContext{ctx: composables.WithUser(tc.ctx, u)}
}

func (tc *TestContext) Context() context.Context {
	return tc.ctx
}

// nopTx satisfies pgx.Tx for services whose repositories never touch the
// database. Any attempt to run SQL through it panics, which turns a missing
// in-memory repository method into a loud test failure.
type nopTx struct{}

func (nopTx) Begin(ctx context.Context) (pgx.Tx, error) { return nopTx{}, nil }
func (nopTx) Commit(ctx context.Context) error          { return nil }
func (nopTx) Rollback(ctx context.Context) error        { return nil }

func (nopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("itf: no database in test context")
}

func (nopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("itf: no database in test context")
}

func (nopTx) LargeObjects() pgx.LargeObjects {
	panic("itf: no database in test context")
}

func (nopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("itf: no database in test context")
}

func (nopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("itf: no database in test context")
}

func (nopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("itf: no database in test context")
}

func (nopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("itf: no database in test context")
}

func (nopTx) Conn() *pgx.Conn {
	return nil
}
