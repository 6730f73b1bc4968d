package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestCreateFolder_DuplicateNameRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.folder(t, alice, "docs", nil)
	_, err := f.svc.CreateFolder(ctx, alice, "docs", nil)
	assert.True(t, vault.IsDuplicateName(err))

	// The same name is fine for another user or under another parent.
	_, err = f.svc.CreateFolder(ctx, bob, "docs", nil)
	assert.NoError(t, err)
}

func TestCreateFolder_EmptyName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFolder(context.Background(), alice, "", nil)
	code, ok := vault.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vault.CodeInvalidArgument, code)
}

func TestRenameFolder_FreesOldName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "docs", nil)
	require.NoError(t, f.svc.RenameFolder(ctx, alice, folder.ID, "archive"))

	_, err := f.svc.CreateFolder(ctx, alice, "docs", nil)
	assert.NoError(t, err)
}

func TestMoveFolder_CycleRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.folder(t, alice, "a", nil)
	b := f.folder(t, alice, "b", &a.ID)
	c := f.folder(t, alice, "c", &b.ID)

	err := f.svc.MoveFolder(ctx, alice, a.ID, &c.ID)
	assert.True(t, vault.IsCyclicFolder(err))

	err = f.svc.MoveFolder(ctx, alice, a.ID, &a.ID)
	assert.True(t, vault.IsCyclicFolder(err))
}

func TestMoveFolder_ForeignParentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.folder(t, alice, "mine", nil)
	theirs := f.folder(t, bob, "theirs", nil)

	err := f.svc.MoveFolder(ctx, alice, mine.ID, &theirs.ID)
	assert.True(t, vault.IsNotFound(err))
}

func TestMoveLink_BetweenFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	src := f.folder(t, alice, "src", nil)
	dst := f.folder(t, alice, "dst", nil)
	link := f.ingest(t, alice, []byte("moving"), "moving.txt", &src.ID)

	require.NoError(t, f.svc.MoveLink(ctx, alice, link.ID, &dst.ID))

	_, srcLinks, err := f.svc.ListChildren(ctx, alice, &src.ID)
	require.NoError(t, err)
	assert.Empty(t, srcLinks)

	_, dstLinks, err := f.svc.ListChildren(ctx, alice, &dst.ID)
	require.NoError(t, err)
	require.Len(t, dstLinks, 1)
	assert.Equal(t, link.ID, dstLinks[0].ID)
}

func TestMoveLink_TrashedLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dst := f.folder(t, alice, "dst", nil)
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	require.NoError(t, f.svc.Dereference(ctx, alice, link.ID))

	err := f.svc.MoveLink(ctx, alice, link.ID, &dst.ID)
	assert.True(t, vault.IsNotFound(err))
}

func TestDeleteFolder_PromotesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// parent/doomed/{sub, file} with recursive=false: sub moves under
	// parent, file goes to root, nothing is lost.
	parent := f.folder(t, alice, "parent", nil)
	doomed := f.folder(t, alice, "doomed", &parent.ID)
	sub := f.folder(t, alice, "sub", &doomed.ID)
	link := f.ingest(t, alice, []byte("kept"), "kept.txt", &doomed.ID)

	require.NoError(t, f.svc.DeleteFolder(ctx, alice, doomed.ID, false))

	folders, _, err := f.svc.ListChildren(ctx, alice, &parent.ID)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, sub.ID, folders[0].ID)

	_, rootLinks, err := f.svc.ListChildren(ctx, alice, nil)
	require.NoError(t, err)
	require.Len(t, rootLinks, 1)
	assert.Equal(t, link.ID, rootLinks[0].ID)
	assert.False(t, rootLinks[0].Trashed())
}

func TestDeleteFolder_PromotionCollisionAbortsUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.folder(t, alice, "parent", nil)
	doomed := f.folder(t, alice, "doomed", &parent.ID)
	f.folder(t, alice, "sub", &parent.ID)
	f.folder(t, alice, "sub", &doomed.ID)
	link := f.ingest(t, alice, []byte("x"), "x.txt", &doomed.ID)

	err := f.svc.DeleteFolder(ctx, alice, doomed.ID, false)
	assert.True(t, vault.IsDuplicateName(err))

	// Nothing moved: the folder and its file are still in place.
	folders, links, err := f.svc.ListChildren(ctx, alice, &doomed.ID)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}

func TestDeleteFolder_RecursiveTrashesDescendants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.folder(t, alice, "top", nil)
	sub := f.folder(t, alice, "sub", &top.ID)
	direct := f.ingest(t, alice, []byte("direct"), "direct.txt", &top.ID)
	nested := f.ingest(t, alice, []byte("nested"), "nested.txt", &sub.ID)

	require.NoError(t, f.svc.DeleteFolder(ctx, alice, top.ID, true))

	_, err := f.svc.ResolvePath(ctx, alice, top.ID)
	assert.True(t, vault.IsNotFound(err))
	_, err = f.svc.ResolvePath(ctx, alice, sub.ID)
	assert.True(t, vault.IsNotFound(err))

	trash, err := f.svc.ListTrash(ctx, alice)
	require.NoError(t, err)
	ids := make(map[vault.LinkID]bool, len(trash))
	for _, l := range trash {
		ids[l.ID] = true
	}
	assert.True(t, ids[direct.ID])
	assert.True(t, ids[nested.ID])
}

func TestResolvePath_RootFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.folder(t, alice, "a", nil)
	b := f.folder(t, alice, "b", &a.ID)
	c := f.folder(t, alice, "c", &b.ID)

	path, err := f.svc.ResolvePath(ctx, alice, c.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, a.ID, path[0].ID)
	assert.Equal(t, b.ID, path[1].ID)
	assert.Equal(t, c.ID, path[2].ID)
}

func TestListChildren_ScopedToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.folder(t, alice, "docs", nil)
	f.ingest(t, alice, []byte("a"), "a.txt", nil)
	f.ingest(t, bob, []byte("b"), "b.txt", nil)

	folders, links, err := f.svc.ListChildren(ctx, bob, nil)
	require.NoError(t, err)
	assert.Empty(t, folders)
	require.Len(t, links, 1)
	assert.Equal(t, "b.txt", links[0].Filename)
}
