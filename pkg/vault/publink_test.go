package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestIssuePublicLink_ResolvableByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("public"), "public.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pub.Token)

	resolved, err := f.svc.ResolvePublicLink(ctx, pub.Token)
	require.NoError(t, err)
	assert.Equal(t, vault.FileResource(link.ID), resolved.Resource)
	assert.Equal(t, alice, resolved.OwnerID)
}

func TestIssuePublicLink_NonOwner(t *testing.T) {
	f := newFixture(t)
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	_, err := f.svc.IssuePublicLink(context.Background(), vault.FileResource(link.ID), bob, nil)
	assert.True(t, vault.IsNotOwner(err))
}

func TestIssuePublicLink_MultipleTokensPerResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	first, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)
	second, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	// Revoking one token leaves the other usable.
	require.NoError(t, f.svc.RevokePublicLink(ctx, first.Token, alice))

	_, err = f.svc.ResolvePublicLink(ctx, first.Token)
	assert.True(t, vault.IsNotFound(err))
	_, err = f.svc.ResolvePublicLink(ctx, second.Token)
	assert.NoError(t, err)
}

func TestResolvePublicLink_UnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResolvePublicLink(context.Background(), "no-such-token")
	assert.True(t, vault.IsNotFound(err))
}

func TestResolvePublicLink_RevokedLooksLikeUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokePublicLink(ctx, pub.Token, alice))

	_, errRevoked := f.svc.ResolvePublicLink(ctx, pub.Token)
	_, errUnknown := f.svc.ResolvePublicLink(ctx, "no-such-token")

	// A revoked token is indistinguishable from one that never existed.
	require.Error(t, errRevoked)
	assert.Equal(t, errUnknown.Error(), errRevoked.Error())
	assert.True(t, vault.IsNotFound(errRevoked))
}

func TestResolvePublicLink_RevocationIsPermanent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokePublicLink(ctx, pub.Token, alice))

	for i := 0; i < 3; i++ {
		_, err := f.svc.DownloadViaPublicLink(ctx, pub.Token)
		assert.True(t, vault.IsNotFound(err))
		f.clock.Advance(time.Hour)
	}
}

func TestResolvePublicLink_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	expiry := f.clock.Now().Add(time.Hour)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, &expiry)
	require.NoError(t, err)

	_, err = f.svc.ResolvePublicLink(ctx, pub.Token)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.ResolvePublicLink(ctx, pub.Token)
	assert.True(t, vault.IsNotFound(err))
}

func TestRevokePublicLink_NonOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)

	err = f.svc.RevokePublicLink(ctx, pub.Token, bob)
	assert.True(t, vault.IsNotOwner(err))
}

func TestDownloadViaPublicLink_ServesBytesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("anonymous download")

	link := f.ingest(t, alice, data, "pub.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := f.svc.DownloadViaPublicLink(ctx, pub.Token)
		require.NoError(t, err)
		assert.Equal(t, data, readAll(t, result.Content))
		assert.Equal(t, "pub.txt", result.Filename)
	}

	resolved, err := f.svc.ResolvePublicLink(ctx, pub.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), resolved.AccessCount)
}

func TestDownloadViaPublicLink_AppendsAnonymousLedgerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("tracked"), "tracked.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)

	result, err := f.svc.DownloadViaPublicLink(ctx, pub.Token)
	require.NoError(t, err)
	_ = result.Content.Close()

	activity, err := f.svc.ActivityFor(ctx, alice, link.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, vault.ActivityDownload, activity[0].Kind)
	assert.Empty(t, activity[0].UserID)
}

func TestDownloadViaPublicLink_FolderToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "pub", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FolderResource(folder.ID), alice, nil)
	require.NoError(t, err)

	_, err = f.svc.DownloadViaPublicLink(ctx, pub.Token)
	assert.True(t, vault.IsNotFound(err))
}

func TestDownloadViaPublicLink_TrashedFileHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Dereference(ctx, alice, link.ID))
	_, err = f.svc.DownloadViaPublicLink(ctx, pub.Token)
	assert.True(t, vault.IsNotFound(err))

	// Restoring the file brings the token back to life.
	require.NoError(t, f.svc.Restore(ctx, alice, link.ID))
	result, err := f.svc.DownloadViaPublicLink(ctx, pub.Token)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), readAll(t, result.Content))
}

func TestListPublicFolder_ListsChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "pub", nil)
	sub := f.folder(t, alice, "inner", &folder.ID)
	link := f.ingest(t, alice, []byte("listed"), "listed.txt", &folder.ID)

	pub, err := f.svc.IssuePublicLink(ctx, vault.FolderResource(folder.ID), alice, nil)
	require.NoError(t, err)

	folders, links, err := f.svc.ListPublicFolder(ctx, pub.Token)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, sub.ID, folders[0].ID)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}

func TestListPublicFolder_FileToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	pub, err := f.svc.IssuePublicLink(ctx, vault.FileResource(link.ID), alice, nil)
	require.NoError(t, err)

	_, _, err = f.svc.ListPublicFolder(ctx, pub.Token)
	assert.True(t, vault.IsNotFound(err))
}
