package vaulttest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunTrashTests(test *testing.T) {
	test.Run("TrashLink_HidesFromListing", suite.TestTrashLink_HidesFromListing)
	test.Run("TrashLink_AlreadyTrashed", suite.TestTrashLink_AlreadyTrashed)
	test.Run("RestoreLink_Success", suite.TestRestoreLink_Success)
	test.Run("RestoreLink_NotTrashed", suite.TestRestoreLink_NotTrashed)
	test.Run("RestoreLink_FolderRemoved", suite.TestRestoreLink_FolderRemoved)
	test.Run("ListTrash_MostRecentFirst", suite.TestListTrash_MostRecentFirst)
	test.Run("ListTrashedBefore_Cutoff", suite.TestListTrashedBefore_Cutoff)
	test.Run("PurgeLink_DecrementsRefCount", suite.TestPurgeLink_DecrementsRefCount)
	test.Run("PurgeLink_LastReferenceRemovesRecord", suite.TestPurgeLink_LastReferenceRemovesRecord)
	test.Run("PurgeLink_ActiveLink", suite.TestPurgeLink_ActiveLink)
	test.Run("PurgeLink_RemovesActivity", suite.TestPurgeLink_RemovesActivity)
}

func (suite *StoreSuite) TestTrashLink_HidesFromListing(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewLink("alice", DigestOf("to trash"), "bin.txt")
	MustIngest(test, store, NewRecord(link.Digest, "bin.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	links, err := store.ListLinks(ctx, "alice", nil)
	require.NoError(test, err)
	assert.Empty(test, links)

	// The link still exists and still holds its reference.
	got, err := store.GetLink(ctx, link.ID)
	require.NoError(test, err)
	assert.True(test, got.Trashed())

	rec, err := store.GetContent(ctx, link.Digest)
	require.NoError(test, err)
	assert.Equal(test, uint32(1), rec.RefCount, "trash must not decrement the refcount")
}

func (suite *StoreSuite) TestTrashLink_AlreadyTrashed(test *testing.T) {
	store := suite.NewStore(test)

	link := NewLink("alice", DigestOf("double trash"), "twice.txt")
	MustIngest(test, store, NewRecord(link.Digest, "twice.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	err := store.TrashLink(context.Background(), link.ID, baseTime.Add(time.Hour))
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestRestoreLink_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewLink("alice", DigestOf("restorable"), "back.txt")
	MustIngest(test, store, NewRecord(link.Digest, "back.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	require.NoError(test, store.RestoreLink(ctx, link.ID))

	links, err := store.ListLinks(ctx, "alice", nil)
	require.NoError(test, err)
	require.Len(test, links, 1)
	assert.Equal(test, link.ID, links[0].ID)
	assert.Nil(test, links[0].TrashedAt)

	trash, err := store.ListTrash(ctx, "alice")
	require.NoError(test, err)
	assert.Empty(test, trash)
}

func (suite *StoreSuite) TestRestoreLink_NotTrashed(test *testing.T) {
	store := suite.NewStore(test)

	link := NewLink("alice", DigestOf("still active"), "active.txt")
	MustIngest(test, store, NewRecord(link.Digest, "active.txt"), link)

	err := store.RestoreLink(context.Background(), link.ID)
	code, _ := vault.CodeOf(err)
	assert.Equal(test, vault.CodeNotTrashed, code)
}

func (suite *StoreSuite) TestRestoreLink_FolderRemoved(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "doomed", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	link := NewLink("alice", DigestOf("homeless"), "orphan.txt")
	link.FolderID = folderIDPtr(folder.ID)
	MustIngest(test, store, NewRecord(link.Digest, "orphan.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	require.NoError(test, store.DeleteFolder(ctx, folder.ID))
	require.NoError(test, store.RestoreLink(ctx, link.ID))

	got, err := store.GetLink(ctx, link.ID)
	require.NoError(test, err)
	assert.Nil(test, got.FolderID, "restore into a removed folder lands at root")
}

func (suite *StoreSuite) TestListTrash_MostRecentFirst(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	old := NewLink("alice", DigestOf("old trash"), "old.txt")
	MustIngest(test, store, NewRecord(old.Digest, "old.txt"), old)
	MustTrash(test, store, old.ID, baseTime)

	recent := NewLink("alice", DigestOf("recent trash"), "recent.txt")
	MustIngest(test, store, NewRecord(recent.Digest, "recent.txt"), recent)
	MustTrash(test, store, recent.ID, baseTime.Add(2*time.Hour))

	trash, err := store.ListTrash(ctx, "alice")
	require.NoError(test, err)
	require.Len(test, trash, 2)
	assert.Equal(test, recent.ID, trash[0].ID)
	assert.Equal(test, old.ID, trash[1].ID)
}

func (suite *StoreSuite) TestListTrashedBefore_Cutoff(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	expired := NewLink("alice", DigestOf("past retention"), "expired.txt")
	MustIngest(test, store, NewRecord(expired.Digest, "expired.txt"), expired)
	MustTrash(test, store, expired.ID, baseTime)

	fresh := NewLink("bob", DigestOf("inside retention"), "fresh.txt")
	MustIngest(test, store, NewRecord(fresh.Digest, "fresh.txt"), fresh)
	MustTrash(test, store, fresh.ID, baseTime.Add(48*time.Hour))

	links, err := store.ListTrashedBefore(ctx, baseTime.Add(time.Hour))
	require.NoError(test, err)
	require.Len(test, links, 1)
	assert.Equal(test, expired.ID, links[0].ID)
}

func (suite *StoreSuite) TestPurgeLink_DecrementsRefCount(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("shared purge")
	aliceLink := NewLink("alice", digest, "mine.txt")
	MustIngest(test, store, NewRecord(digest, "mine.txt"), aliceLink)
	MustIngest(test, store, NewRecord(digest, "yours.txt"), NewLink("bob", digest, "yours.txt"))

	MustTrash(test, store, aliceLink.ID, baseTime)
	rec, removed, err := store.PurgeLink(ctx, aliceLink.ID)
	require.NoError(test, err)
	assert.False(test, removed, "a surviving reference must keep the record alive")
	assert.Equal(test, uint32(1), rec.RefCount)

	stored, err := store.GetContent(ctx, digest)
	require.NoError(test, err)
	assert.Equal(test, uint32(1), stored.RefCount)

	// Alice can re-upload afterwards: her old link is gone.
	_, err = store.FindLink(ctx, "alice", digest)
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestPurgeLink_LastReferenceRemovesRecord(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewLink("alice", DigestOf("sole copy"), "only.txt")
	MustIngest(test, store, NewRecord(link.Digest, "only.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	rec, removed, err := store.PurgeLink(ctx, link.ID)
	require.NoError(test, err)
	assert.True(test, removed)
	assert.NotEmpty(test, rec.StoragePath, "caller needs the storage path to delete the blob")

	_, err = store.GetContent(ctx, link.Digest)
	assert.True(test, vault.IsNotFound(err))
	_, err = store.GetLink(ctx, link.ID)
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestPurgeLink_ActiveLink(test *testing.T) {
	store := suite.NewStore(test)

	link := NewLink("alice", DigestOf("not in trash"), "keep.txt")
	MustIngest(test, store, NewRecord(link.Digest, "keep.txt"), link)

	_, _, err := store.PurgeLink(context.Background(), link.ID)
	code, _ := vault.CodeOf(err)
	assert.Equal(test, vault.CodeNotTrashed, code)
}

func (suite *StoreSuite) TestPurgeLink_RemovesActivity(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewLink("alice", DigestOf("audited"), "watched.txt")
	MustIngest(test, store, NewRecord(link.Digest, "watched.txt"), link)
	require.NoError(test, store.AppendActivity(ctx, vault.ActivityRecord{
		ID: "act-1", Digest: link.Digest, UserID: "alice", Kind: vault.ActivityDownload, At: baseTime,
	}))

	MustTrash(test, store, link.ID, baseTime)
	_, removed, err := store.PurgeLink(ctx, link.ID)
	require.NoError(test, err)
	require.True(test, removed)

	entries, err := store.ListActivityByDigest(ctx, link.Digest)
	require.NoError(test, err)
	assert.Empty(test, entries, "the ledger goes with its content record")
}
