package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestStar_FileAndFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "docs", nil)
	link := f.ingest(t, alice, []byte("fav"), "fav.txt", &folder.ID)

	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFile, string(link.ID)))
	f.clock.Advance(time.Second)
	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFolder, string(folder.ID)))

	starred, err := f.svc.ListStarred(ctx, alice)
	require.NoError(t, err)
	require.Len(t, starred, 2)
	assert.Equal(t, string(link.ID), starred[0].ItemID)
	assert.Equal(t, string(folder.ID), starred[1].ItemID)
}

func TestStar_TwiceKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFile, string(link.ID)))
	first, err := f.svc.ListStarred(ctx, alice)
	require.NoError(t, err)
	require.Len(t, first, 1)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFile, string(link.ID)))

	second, err := f.svc.ListStarred(ctx, alice)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].StarredAt, second[0].StarredAt)
}

func TestStar_SharedFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("shared"), "shared.txt", nil)
	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	assert.NoError(t, f.svc.Star(ctx, bob, vault.ItemFile, string(link.ID)))
}

func TestStar_WithoutPermission(t *testing.T) {
	f := newFixture(t)

	link := f.ingest(t, alice, []byte("private"), "private.txt", nil)
	err := f.svc.Star(context.Background(), bob, vault.ItemFile, string(link.ID))
	assert.True(t, vault.IsNotFound(err))
}

func TestStar_UnknownKind(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Star(context.Background(), alice, "bookmark", "whatever")
	code, ok := vault.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vault.CodeInvalidArgument, code)
}

func TestUnstar_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFile, string(link.ID)))
	require.NoError(t, f.svc.Unstar(ctx, alice, vault.ItemFile, string(link.ID)))

	starred, err := f.svc.ListStarred(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, starred)

	assert.NoError(t, f.svc.Unstar(ctx, alice, vault.ItemFile, string(link.ID)))
}

func TestListStarred_PerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	la := f.ingest(t, alice, []byte("a"), "a.txt", nil)
	lb := f.ingest(t, bob, []byte("b"), "b.txt", nil)
	require.NoError(t, f.svc.Star(ctx, alice, vault.ItemFile, string(la.ID)))
	require.NoError(t, f.svc.Star(ctx, bob, vault.ItemFile, string(lb.ID)))

	starred, err := f.svc.ListStarred(ctx, bob)
	require.NoError(t, err)
	require.Len(t, starred, 1)
	assert.Equal(t, string(lb.ID), starred[0].ItemID)
}
