package vaulttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunPublicLinkTests(test *testing.T) {
	test.Run("PutPublicLink_Get", suite.TestPutPublicLink_Get)
	test.Run("GetPublicLink_NotFound", suite.TestGetPublicLink_NotFound)
	test.Run("RevokePublicLink_Idempotent", suite.TestRevokePublicLink_Idempotent)
	test.Run("IncrementLinkAccess_Counts", suite.TestIncrementLinkAccess_Counts)
	test.Run("IncrementLinkAccess_Concurrent", suite.TestIncrementLinkAccess_Concurrent)
}

func (suite *StoreSuite) TestPutPublicLink_Get(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewPublicLink(vault.FileResource("link-1"), "alice")
	require.NoError(test, store.PutPublicLink(ctx, link))

	got, err := store.GetPublicLink(ctx, link.Token)
	require.NoError(test, err)
	assert.Equal(test, link.Resource, got.Resource)
	assert.Equal(test, uint64(0), got.AccessCount)
	assert.Nil(test, got.RevokedAt)
}

func (suite *StoreSuite) TestGetPublicLink_NotFound(test *testing.T) {
	store := suite.NewStore(test)

	_, err := store.GetPublicLink(context.Background(), "no-such-token")
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestRevokePublicLink_Idempotent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewPublicLink(vault.FileResource("link-2"), "alice")
	require.NoError(test, store.PutPublicLink(ctx, link))

	first := baseTime.Add(time.Hour)
	require.NoError(test, store.RevokePublicLink(ctx, link.Token, first))
	require.NoError(test, store.RevokePublicLink(ctx, link.Token, first.Add(time.Hour)))

	got, err := store.GetPublicLink(ctx, link.Token)
	require.NoError(test, err)
	require.NotNil(test, got.RevokedAt)
	assert.True(test, got.RevokedAt.Equal(first), "the first revocation timestamp must stand")
}

func (suite *StoreSuite) TestIncrementLinkAccess_Counts(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewPublicLink(vault.FileResource("link-3"), "alice")
	require.NoError(test, store.PutPublicLink(ctx, link))

	for want := uint64(1); want <= 3; want++ {
		got, err := store.IncrementLinkAccess(ctx, link.Token)
		require.NoError(test, err)
		assert.Equal(test, want, got)
	}
}

func (suite *StoreSuite) TestIncrementLinkAccess_Concurrent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewPublicLink(vault.FileResource("link-4"), "alice")
	require.NoError(test, store.PutPublicLink(ctx, link))

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.IncrementLinkAccess(ctx, link.Token)
			assert.NoError(test, err)
		}()
	}
	wg.Wait()

	got, err := store.GetPublicLink(ctx, link.Token)
	require.NoError(test, err)
	assert.Equal(test, uint64(workers), got.AccessCount, "concurrent increments must not be lost")
}
