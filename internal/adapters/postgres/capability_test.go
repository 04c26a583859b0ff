package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/guardian/pkg/domain"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	tag    pgconn.CommandTag
	err    error
	pos    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return r.tag }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Scan(dest ...any) error                       { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

type fakeQuerier struct {
	rows    pgx.Rows
	err     error
	lastSQL string
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.lastSQL = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestExecute_RowsBecomeMaps(t *testing.T) {
	rows := &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "id"}, {Name: "name"}},
		values: [][]any{{int64(1), "Alice"}, {int64(2), "Bob"}},
	}
	db := &fakeQuerier{rows: rows}
	cap := NewCapability("hr_sql_db_query", "HR database", db)

	out, err := cap.Execute(context.Background(), domain.TextPayload("SELECT id, name FROM employees"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM employees", db.lastSQL)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "Alice"},
		{"id": int64(2), "name": "Bob"},
	}, out)
}

func TestExecute_EmptyRowSetIsEmptySlice(t *testing.T) {
	rows := &fakeRows{fields: []pgconn.FieldDescription{{Name: "id"}}}
	cap := NewCapability("hr_sql_db_query", "HR database", &fakeQuerier{rows: rows})

	out, err := cap.Execute(context.Background(), domain.TextPayload("SELECT id FROM employees WHERE 1=0"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{}, out)
}

func TestExecute_CommandTagForNonRowStatements(t *testing.T) {
	rows := &fakeRows{tag: pgconn.NewCommandTag("UPDATE 3")}
	cap := NewCapability("hr_sql_db_query", "HR database", &fakeQuerier{rows: rows})

	out, err := cap.Execute(context.Background(), domain.TextPayload("UPDATE salaries SET amount = 0"))
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UPDATE 3", result["status"])
	assert.Equal(t, int64(3), result["rows_affected"])
}

func TestExecute_QueryErrorSurfaces(t *testing.T) {
	db := &fakeQuerier{err: errors.New(`relation "employes" does not exist`)}
	cap := NewCapability("hr_sql_db_query", "HR database", db)

	_, err := cap.Execute(context.Background(), domain.TextPayload("SELECT * FROM employes"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestExecute_EmptyPayloadRejected(t *testing.T) {
	cap := NewCapability("hr_sql_db_query", "HR database", &fakeQuerier{})
	_, err := cap.Execute(context.Background(), domain.Payload{})
	assert.Error(t, err)
}

func TestExecute_StructuredPayloadUsesQueryField(t *testing.T) {
	rows := &fakeRows{fields: []pgconn.FieldDescription{{Name: "id"}}}
	db := &fakeQuerier{rows: rows}
	cap := NewCapability("sales_sql_db_query", "Sales database", db)

	_, err := cap.Execute(context.Background(), domain.StructuredPayload(map[string]any{
		"query": "SELECT id FROM orders",
	}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders", db.lastSQL)
}
