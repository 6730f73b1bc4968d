package vaulttest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunActivityTests(test *testing.T) {
	test.Run("AppendActivity_InsertionOrder", suite.TestAppendActivity_InsertionOrder)
	test.Run("AppendActivity_AnonymousEntry", suite.TestAppendActivity_AnonymousEntry)
	test.Run("ListActivityByDigest_Empty", suite.TestListActivityByDigest_Empty)
}

func (suite *StoreSuite) TestAppendActivity_InsertionOrder(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("audited content")
	for i := 0; i < 5; i++ {
		require.NoError(test, store.AppendActivity(ctx, vault.ActivityRecord{
			ID:     fmt.Sprintf("act-%d", i),
			Digest: digest,
			UserID: "alice",
			Kind:   vault.ActivityPreview,
			At:     baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := store.ListActivityByDigest(ctx, digest)
	require.NoError(test, err)
	require.Len(test, entries, 5)
	for i, entry := range entries {
		assert.Equal(test, fmt.Sprintf("act-%d", i), entry.ID)
	}
}

func (suite *StoreSuite) TestAppendActivity_AnonymousEntry(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("publicly fetched")
	require.NoError(test, store.AppendActivity(ctx, vault.ActivityRecord{
		ID:     "anon-1",
		Digest: digest,
		Kind:   vault.ActivityDownload,
		At:     baseTime,
	}))

	entries, err := store.ListActivityByDigest(ctx, digest)
	require.NoError(test, err)
	require.Len(test, entries, 1)
	assert.Empty(test, entries[0].UserID)
}

func (suite *StoreSuite) TestListActivityByDigest_Empty(test *testing.T) {
	store := suite.NewStore(test)

	entries, err := store.ListActivityByDigest(context.Background(), DigestOf("never touched"))
	require.NoError(test, err)
	assert.Empty(test, entries)
}

func (suite *StoreSuite) RunStarredTests(test *testing.T) {
	test.Run("PutStarred_KeepsOriginal", suite.TestPutStarred_KeepsOriginal)
	test.Run("DeleteStarred_Idempotent", suite.TestDeleteStarred_Idempotent)
	test.Run("ListStarred_PerUser", suite.TestListStarred_PerUser)
}

func (suite *StoreSuite) TestPutStarred_KeepsOriginal(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	item := vault.StarredItem{ID: "star-1", UserID: "alice", Kind: vault.ItemFile, ItemID: "link-1", StarredAt: baseTime}
	require.NoError(test, store.PutStarred(ctx, item))

	later := item
	later.ID = "star-2"
	later.StarredAt = baseTime.Add(time.Hour)
	require.NoError(test, store.PutStarred(ctx, later))

	stars, err := store.ListStarred(ctx, "alice")
	require.NoError(test, err)
	require.Len(test, stars, 1)
	assert.Equal(test, "star-1", stars[0].ID, "re-starring must keep the original entry")
}

func (suite *StoreSuite) TestDeleteStarred_Idempotent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	item := vault.StarredItem{ID: "star-3", UserID: "alice", Kind: vault.ItemFolder, ItemID: "folder-1", StarredAt: baseTime}
	require.NoError(test, store.PutStarred(ctx, item))

	require.NoError(test, store.DeleteStarred(ctx, "alice", vault.ItemFolder, "folder-1"))
	require.NoError(test, store.DeleteStarred(ctx, "alice", vault.ItemFolder, "folder-1"))

	stars, err := store.ListStarred(ctx, "alice")
	require.NoError(test, err)
	assert.Empty(test, stars)
}

func (suite *StoreSuite) TestListStarred_PerUser(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.PutStarred(ctx, vault.StarredItem{
		ID: "star-a", UserID: "alice", Kind: vault.ItemFile, ItemID: "link-a", StarredAt: baseTime,
	}))
	require.NoError(test, store.PutStarred(ctx, vault.StarredItem{
		ID: "star-b", UserID: "alice", Kind: vault.ItemFolder, ItemID: "folder-b", StarredAt: baseTime.Add(time.Minute),
	}))
	require.NoError(test, store.PutStarred(ctx, vault.StarredItem{
		ID: "star-c", UserID: "bob", Kind: vault.ItemFile, ItemID: "link-c", StarredAt: baseTime,
	}))

	stars, err := store.ListStarred(ctx, "alice")
	require.NoError(test, err)
	require.Len(test, stars, 2)
	assert.Equal(test, "star-a", stars[0].ID)
	assert.Equal(test, "star-b", stars[1].ID)
}
