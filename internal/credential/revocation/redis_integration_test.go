//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"onward/pkg/testutil/containers"
)

func TestRedisListRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	list := NewRedisList(rc.Client)

	revoked, err := list.IsRevoked(ctx, "cred-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "cred-1", time.Minute))
	revoked, err = list.IsRevoked(ctx, "cred-1")
	require.NoError(t, err)
	require.True(t, revoked)

	// An empty id is a no-op on both paths.
	require.NoError(t, list.Revoke(ctx, "", time.Minute))
	revoked, err = list.IsRevoked(ctx, "")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisListEntryExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	list := NewRedisList(rc.Client)

	require.NoError(t, list.Revoke(ctx, "short-lived", 500*time.Millisecond))

	revoked, err := list.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	require.True(t, revoked)

	require.Eventually(t, func() bool {
		revoked, err := list.IsRevoked(ctx, "short-lived")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}
