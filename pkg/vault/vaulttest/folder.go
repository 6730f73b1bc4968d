package vaulttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func (suite *StoreSuite) RunFolderTests(test *testing.T) {
	test.Run("CreateFolder_Success", suite.TestCreateFolder_Success)
	test.Run("CreateFolder_DuplicateName", suite.TestCreateFolder_DuplicateName)
	test.Run("CreateFolder_SameNameDifferentParent", suite.TestCreateFolder_SameNameDifferentParent)
	test.Run("RenameFolder_Success", suite.TestRenameFolder_Success)
	test.Run("RenameFolder_DuplicateName", suite.TestRenameFolder_DuplicateName)
	test.Run("SetFolderParent_Success", suite.TestSetFolderParent_Success)
	test.Run("SetFolderParent_Cycle", suite.TestSetFolderParent_Cycle)
	test.Run("SetFolderParent_Self", suite.TestSetFolderParent_Self)
	test.Run("SetFolderParent_DuplicateName", suite.TestSetFolderParent_DuplicateName)
	test.Run("DeleteFolder_Success", suite.TestDeleteFolder_Success)
	test.Run("ListFolders_SortedByName", suite.TestListFolders_SortedByName)
	test.Run("FolderPath_RootFirst", suite.TestFolderPath_RootFirst)
}

func (suite *StoreSuite) TestCreateFolder_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "documents", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	got, err := store.GetFolder(ctx, folder.ID)
	require.NoError(test, err)
	assert.Equal(test, "documents", got.Name)
	assert.Nil(test, got.ParentID)
}

func (suite *StoreSuite) TestCreateFolder_DuplicateName(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "photos", nil)))

	err := store.CreateFolder(ctx, NewFolder("alice", "photos", nil))
	assert.True(test, vault.IsDuplicateName(err))
}

func (suite *StoreSuite) TestCreateFolder_SameNameDifferentParent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	parent := NewFolder("alice", "projects", nil)
	require.NoError(test, store.CreateFolder(ctx, parent))

	// Same name under a different parent, and for a different owner at the
	// same level, are both fine.
	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "projects", folderIDPtr(parent.ID))))
	require.NoError(test, store.CreateFolder(ctx, NewFolder("bob", "projects", nil)))
}

func (suite *StoreSuite) TestRenameFolder_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "drafts", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))
	require.NoError(test, store.RenameFolder(ctx, folder.ID, "final"))

	got, err := store.GetFolder(ctx, folder.ID)
	require.NoError(test, err)
	assert.Equal(test, "final", got.Name)

	// The old name is free again.
	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "drafts", nil)))
}

func (suite *StoreSuite) TestRenameFolder_DuplicateName(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "taken", nil)))
	folder := NewFolder("alice", "free", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	err := store.RenameFolder(ctx, folder.ID, "taken")
	assert.True(test, vault.IsDuplicateName(err))
}

func (suite *StoreSuite) TestSetFolderParent_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	parent := NewFolder("alice", "archive", nil)
	child := NewFolder("alice", "2024", nil)
	require.NoError(test, store.CreateFolder(ctx, parent))
	require.NoError(test, store.CreateFolder(ctx, child))

	require.NoError(test, store.SetFolderParent(ctx, child.ID, folderIDPtr(parent.ID)))

	got, err := store.GetFolder(ctx, child.ID)
	require.NoError(test, err)
	require.NotNil(test, got.ParentID)
	assert.Equal(test, parent.ID, *got.ParentID)

	children, err := store.ListFolders(ctx, "alice", folderIDPtr(parent.ID))
	require.NoError(test, err)
	require.Len(test, children, 1)
	assert.Equal(test, child.ID, children[0].ID)
}

func (suite *StoreSuite) TestSetFolderParent_Cycle(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	a := NewFolder("alice", "a", nil)
	b := NewFolder("alice", "b", folderIDPtr(a.ID))
	c := NewFolder("alice", "c", folderIDPtr(b.ID))
	require.NoError(test, store.CreateFolder(ctx, a))
	require.NoError(test, store.CreateFolder(ctx, b))
	require.NoError(test, store.CreateFolder(ctx, c))

	err := store.SetFolderParent(ctx, a.ID, folderIDPtr(c.ID))
	assert.True(test, vault.IsCyclicFolder(err), "moving a folder under its own descendant must fail")
}

func (suite *StoreSuite) TestSetFolderParent_Self(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "selfish", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))

	err := store.SetFolderParent(ctx, folder.ID, folderIDPtr(folder.ID))
	assert.True(test, vault.IsCyclicFolder(err))
}

func (suite *StoreSuite) TestSetFolderParent_DuplicateName(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	parent := NewFolder("alice", "dest", nil)
	require.NoError(test, store.CreateFolder(ctx, parent))
	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "clash", folderIDPtr(parent.ID))))

	moving := NewFolder("alice", "clash", nil)
	require.NoError(test, store.CreateFolder(ctx, moving))

	err := store.SetFolderParent(ctx, moving.ID, folderIDPtr(parent.ID))
	assert.True(test, vault.IsDuplicateName(err))
}

func (suite *StoreSuite) TestDeleteFolder_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	folder := NewFolder("alice", "temp", nil)
	require.NoError(test, store.CreateFolder(ctx, folder))
	require.NoError(test, store.DeleteFolder(ctx, folder.ID))

	_, err := store.GetFolder(ctx, folder.ID)
	assert.True(test, vault.IsNotFound(err))

	// The slot is free again.
	require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", "temp", nil)))
}

func (suite *StoreSuite) TestListFolders_SortedByName(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	for _, name := range []string{"zoo", "apps", "music"} {
		require.NoError(test, store.CreateFolder(ctx, NewFolder("alice", name, nil)))
	}
	require.NoError(test, store.CreateFolder(ctx, NewFolder("bob", "aardvark", nil)))

	folders, err := store.ListFolders(ctx, "alice", nil)
	require.NoError(test, err)
	require.Len(test, folders, 3)
	assert.Equal(test, "apps", folders[0].Name)
	assert.Equal(test, "music", folders[1].Name)
	assert.Equal(test, "zoo", folders[2].Name)
}

func (suite *StoreSuite) TestFolderPath_RootFirst(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	root := NewFolder("alice", "home", nil)
	mid := NewFolder("alice", "work", folderIDPtr(root.ID))
	leaf := NewFolder("alice", "reports", folderIDPtr(mid.ID))
	require.NoError(test, store.CreateFolder(ctx, root))
	require.NoError(test, store.CreateFolder(ctx, mid))
	require.NoError(test, store.CreateFolder(ctx, leaf))

	path, err := store.FolderPath(ctx, leaf.ID)
	require.NoError(test, err)
	require.Len(test, path, 3)
	assert.Equal(test, root.ID, path[0].ID)
	assert.Equal(test, mid.ID, path[1].ID)
	assert.Equal(test, leaf.ID, path[2].ID)
}
