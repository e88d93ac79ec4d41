package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queryAllowed = map[string]bool{"id": true, "tenant_id": true, "email": true, "created_at": true}

func TestBuildWhereRendersPositionalPlaceholders(t *testing.T) {
	conds := []Cond{
		Eq("tenant_id", "t1"),
		{Column: "email", Op: OpLike, Value: "%@example.com"},
	}
	where, args, err := buildWhere(conds, queryAllowed, nil)
	require.NoError(t, err)
	assert.Equal(t, "tenant_id = $1 AND email LIKE $2", where)
	assert.Equal(t, []any{"t1", "%@example.com"}, args)
}

func TestBuildWhereContinuesPlaceholderNumbering(t *testing.T) {
	where, args, err := buildWhere([]Cond{Eq("email", "a@b.c")}, queryAllowed, []any{"existing"})
	require.NoError(t, err)
	assert.Equal(t, "email = $2", where)
	assert.Len(t, args, 2)
}

func TestBuildWhereRejectsUnknownColumn(t *testing.T) {
	_, _, err := buildWhere([]Cond{Eq("password; DROP TABLE users", "x")}, queryAllowed, nil)
	require.Error(t, err)
}

func TestBuildWhereRejectsUnknownOperator(t *testing.T) {
	_, _, err := buildWhere([]Cond{{Column: "email", Op: CondOp(99), Value: "x"}}, queryAllowed, nil)
	require.Error(t, err)
}

func TestBuildTailEnforcesDefaultLimit(t *testing.T) {
	tail, err := buildTail(Filter{}, queryAllowed)
	require.NoError(t, err)
	assert.Equal(t, " LIMIT 500", tail)

	tail, err = buildTail(Filter{Limit: 100000}, queryAllowed)
	require.NoError(t, err)
	assert.Equal(t, " LIMIT 500", tail)
}

func TestBuildTailOrderAndOffset(t *testing.T) {
	tail, err := buildTail(Filter{OrderBy: "created_at", Desc: true, Limit: 10, Offset: 20}, queryAllowed)
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created_at DESC LIMIT 10 OFFSET 20", tail)
}

func TestBuildTailRejectsUnknownOrderColumn(t *testing.T) {
	_, err := buildTail(Filter{OrderBy: "secret"}, queryAllowed)
	require.Error(t, err)
}
