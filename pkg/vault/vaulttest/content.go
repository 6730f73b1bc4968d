package vaulttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunContentTests(test *testing.T) {
	test.Run("Ingest_CreatesRecord", suite.TestIngest_CreatesRecord)
	test.Run("Ingest_DeduplicatesAcrossUsers", suite.TestIngest_DeduplicatesAcrossUsers)
	test.Run("Ingest_SameUserReturnsExistingLink", suite.TestIngest_SameUserReturnsExistingLink)
	test.Run("GetContent_NotFound", suite.TestGetContent_NotFound)
	test.Run("FindLink_Success", suite.TestFindLink_Success)
	test.Run("FindLink_NotFound", suite.TestFindLink_NotFound)
	test.Run("ListLinks_SortedByFilename", suite.TestListLinks_SortedByFilename)
	test.Run("ListLinks_ScopedToFolder", suite.TestListLinks_ScopedToFolder)
	test.Run("SetLinkFolder_MovesListing", suite.TestSetLinkFolder_MovesListing)
	test.Run("SetLinkFolder_TrashedLink", suite.TestSetLinkFolder_TrashedLink)
}

func (suite *StoreSuite) TestIngest_CreatesRecord(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("hello world")
	rec := NewRecord(digest, "hello.txt")
	link := NewLink("alice", digest, "hello.txt")

	got, created, err := store.IngestContent(ctx, rec, link)
	require.NoError(test, err)
	assert.True(test, created)
	assert.Equal(test, link.ID, got.ID)

	stored, err := store.GetContent(ctx, digest)
	require.NoError(test, err)
	assert.Equal(test, uint32(1), stored.RefCount)
	assert.Equal(test, rec.StoragePath, stored.StoragePath)
}

func (suite *StoreSuite) TestIngest_DeduplicatesAcrossUsers(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("shared bytes")
	_, created, err := store.IngestContent(ctx, NewRecord(digest, "a.bin"), NewLink("alice", digest, "a.bin"))
	require.NoError(test, err)
	assert.True(test, created)

	_, created, err = store.IngestContent(ctx, NewRecord(digest, "b.bin"), NewLink("bob", digest, "b.bin"))
	require.NoError(test, err)
	assert.False(test, created, "second upload of identical bytes must increment, not create")

	rec, err := store.GetContent(ctx, digest)
	require.NoError(test, err)
	assert.Equal(test, uint32(2), rec.RefCount)

	// First uploader's metadata wins on the shared record.
	assert.Equal(test, "a.bin", rec.Filename)
}

func (suite *StoreSuite) TestIngest_SameUserReturnsExistingLink(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	digest := DigestOf("repeat upload")
	first := MustIngest(test, store, NewRecord(digest, "doc.pdf"), NewLink("alice", digest, "doc.pdf"))

	again := NewLink("alice", digest, "doc-renamed.pdf")
	got, created, err := store.IngestContent(ctx, NewRecord(digest, "doc.pdf"), again)
	require.NoError(test, err)
	assert.False(test, created)
	assert.Equal(test, first.ID, got.ID, "re-upload must return the existing link untouched")
	assert.Equal(test, "doc.pdf", got.Filename)

	rec, err := store.GetContent(ctx, digest)
	require.NoError(test, err)
	assert.Equal(test, uint32(1), rec.RefCount, "re-upload by the same user must not bump the refcount")
}

func (suite *StoreSuite) TestGetContent_NotFound(test *testing.T) {
	store := suite.NewStore(test)

	_, err := store.GetContent(context.Background(), DigestOf("never stored"))
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestFindLink_Success(test *testing.T) {
	store := suite.NewStore(test)

	digest := DigestOf("findable")
	link := NewLink("alice", digest, "find.txt")
	MustIngest(test, store, NewRecord(digest, "find.txt"), link)

	got, err := store.FindLink(context.Background(), "alice", digest)
	require.NoError(test, err)
	assert.Equal(test, link.ID, got.ID)
}

func (suite *StoreSuite) TestFindLink_NotFound(test *testing.T) {
	store := suite.NewStore(test)

	digest := DigestOf("someone else's bytes")
	MustIngest(test, store, NewRecord(digest, "other.txt"), NewLink("bob", digest, "other.txt"))

	_, err := store.FindLink(context.Background(), "alice", digest)
	assert.True(test, vault.IsNotFound(err))
}

func (suite *StoreSuite) TestListLinks_SortedByFilename(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	for _, name := range []string{"zeta.txt", "alpha.txt", "mid.txt"} {
		digest := DigestOf(name)
		MustIngest(test, store, NewRecord(digest, name), NewLink("alice", digest, name))
	}

	links, err := store.ListLinks(ctx, "alice", nil)
	require.NoError(test, err)
	require.Len(test, links, 3)
	assert.Equal(test, "alpha.txt", links[0].Filename)
	assert.Equal(test, "mid.txt", links[1].Filename)
	assert.Equal(test, "zeta.txt", links[2].Filename)
}

func (suite *StoreSuite) TestListLinks_ScopedToFolder(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "docs", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	inFolder := NewLink("alice", DigestOf("in folder"), "inside.txt")
	inFolder.FolderID = folderIDPtr(folder.ID)
	MustIngest(test, store, NewRecord(inFolder.Digest, "inside.txt"), inFolder)

	atRoot := NewLink("alice", DigestOf("at root"), "outside.txt")
	MustIngest(test, store, NewRecord(atRoot.Digest, "outside.txt"), atRoot)

	rootLinks, err := store.ListLinks(ctx, "alice", nil)
	require.NoError(test, err)
	require.Len(test, rootLinks, 1)
	assert.Equal(test, atRoot.ID, rootLinks[0].ID)

	folderLinks, err := store.ListLinks(ctx, "alice", folderIDPtr(folder.ID))
	require.NoError(test, err)
	require.Len(test, folderLinks, 1)
	assert.Equal(test, inFolder.ID, folderLinks[0].ID)
}

func (suite *StoreSuite) TestSetLinkFolder_MovesListing(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "moved-into", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	link := NewLink("alice", DigestOf("movable"), "move.txt")
	MustIngest(test, store, NewRecord(link.Digest, "move.txt"), link)

	require.NoError(test, store.SetLinkFolder(ctx, link.ID, folderIDPtr(folder.ID)))

	rootLinks, err := store.ListLinks(ctx, "alice", nil)
	require.NoError(test, err)
	assert.Empty(test, rootLinks)

	folderLinks, err := store.ListLinks(ctx, "alice", folderIDPtr(folder.ID))
	require.NoError(test, err)
	require.Len(test, folderLinks, 1)
	assert.Equal(test, link.ID, folderLinks[0].ID)
}

func (suite *StoreSuite) TestSetLinkFolder_TrashedLink(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	link := NewLink("alice", DigestOf("trashed then moved"), "gone.txt")
	MustIngest(test, store, NewRecord(link.Digest, "gone.txt"), link)
	MustTrash(test, store, link.ID, baseTime)

	err := store.SetLinkFolder(ctx, link.ID, nil)
	assert.True(test, vault.IsNotFound(err), "a trashed link cannot be moved")
}
