package vaulttest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunGrantTests(test *testing.T) {
	test.Run("UpsertGrant_CreateAndGet", suite.TestUpsertGrant_CreateAndGet)
	test.Run("UpsertGrant_Replace", suite.TestUpsertGrant_Replace)
	test.Run("GetGrant_NotFound", suite.TestGetGrant_NotFound)
	test.Run("DeleteGrant_Idempotent", suite.TestDeleteGrant_Idempotent)
	test.Run("ListGrantsByResource", suite.TestListGrantsByResource)
	test.Run("ListGrantsByTarget", suite.TestListGrantsByTarget)
}

func (suite *StoreSuite) TestUpsertGrant_CreateAndGet(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	res := vault.FileResource("link-1")
	grant := NewGrant(res, "alice", "bob")
	require.NoError(test, store.UpsertGrant(ctx, grant))

	got, err := store.GetGrant(ctx, res, "bob")
	require.NoError(test, err)
	assert.Equal(test, grant.ID, got.ID)
	assert.Equal(test, vault.PermissionViewer, got.Permission)
}

func (suite *StoreSuite) TestUpsertGrant_Replace(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	res := vault.FileResource("link-2")
	grant := NewGrant(res, "alice", "bob")
	require.NoError(test, store.UpsertGrant(ctx, grant))

	grant.Permission = vault.PermissionEditor
	grant.ExpiresAt = timePtr(baseTime.Add(24 * time.Hour))
	require.NoError(test, store.UpsertGrant(ctx, grant))

	got, err := store.GetGrant(ctx, res, "bob")
	require.NoError(test, err)
	assert.Equal(test, vault.PermissionEditor, got.Permission)
	require.NotNil(test, got.ExpiresAt)

	all, err := store.ListGrantsByResource(ctx, res)
	require.NoError(test, err)
	assert.Len(test, all, 1, "upsert must replace, not accumulate")
}

func (suite *StoreSuite) TestGetGrant_NotFound(test *testing.T) {
	store := suite.NewStore(test)

	_, err := store.GetGrant(context.Background(), vault.FileResource("missing"), "bob")
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestDeleteGrant_Idempotent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	res := vault.FileResource("link-3")
	require.NoError(test, store.UpsertGrant(ctx, NewGrant(res, "alice", "bob")))

	require.NoError(test, store.DeleteGrant(ctx, res, "bob"))
	require.NoError(test, store.DeleteGrant(ctx, res, "bob"), "deleting an absent grant is not an error")

	_, err := store.GetGrant(ctx, res, "bob")
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestListGrantsByResource(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	res := vault.FolderResource("folder-1")
	other := vault.FolderResource("folder-2")

	first := NewGrant(res, "alice", "bob")
	second := NewGrant(res, "alice", "carol")
	second.GrantedAt = baseTime.Add(time.Hour)
	require.NoError(test, store.UpsertGrant(ctx, first))
	require.NoError(test, store.UpsertGrant(ctx, second))
	require.NoError(test, store.UpsertGrant(ctx, NewGrant(other, "alice", "bob")))

	grants, err := store.ListGrantsByResource(ctx, res)
	require.NoError(test, err)
	require.Len(test, grants, 2)
	assert.Equal(test, "bob", grants[0].Target)
	assert.Equal(test, "carol", grants[1].Target)
}

func (suite *StoreSuite) TestListGrantsByTarget(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.UpsertGrant(ctx, NewGrant(vault.FileResource("link-a"), "alice", "bob")))
	require.NoError(test, store.UpsertGrant(ctx, NewGrant(vault.FolderResource("folder-a"), "carol", "bob")))
	require.NoError(test, store.UpsertGrant(ctx, NewGrant(vault.FileResource("link-b"), "alice", "dave")))

	grants, err := store.ListGrantsByTarget(ctx, "bob")
	require.NoError(test, err)
	assert.Len(test, grants, 2)
	for _, g := range grants {
		assert.Equal(test, "bob", g.Target)
	}
}
