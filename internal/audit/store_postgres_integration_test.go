//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/pkg/testutil/containers"
)

func TestPostgresStoreAppendAndList(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	s := NewPostgresStore(pg.DB)
	ctx := context.Background()

	events := []Event{
		{Timestamp: time.Now().UTC(), TenantID: "t1", Actor: "ops@example.com", Action: ActionTenantCreated, Resource: "tenant/t1", Device: "Firefox 115.0 (Linux)"},
		{Timestamp: time.Now().UTC().Add(time.Second), TenantID: "t1", Action: ActionTenantDeactivated, Reason: "billing"},
		{Timestamp: time.Now().UTC(), TenantID: "t2", Action: ActionTenantCreated},
	}
	for _, event := range events {
		require.NoError(t, s.Append(ctx, event))
	}

	got, err := s.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionTenantCreated, got[0].Action)
	assert.Equal(t, ActionTenantDeactivated, got[1].Action)
	assert.Equal(t, "billing", got[1].Reason)
	assert.Equal(t, "ops@example.com", got[0].Actor)
	assert.Equal(t, "Firefox 115.0 (Linux)", got[0].Device)
}
