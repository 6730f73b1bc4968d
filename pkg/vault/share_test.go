package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestEffectivePermission_OwnerAlwaysWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("mine"), "mine.txt", nil)

	perm, err := f.svc.EffectivePermission(ctx, alice, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionOwner, perm)
}

func TestEffectivePermission_NoGrantMeansNone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("private"), "private.txt", nil)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionNone, perm)
}

func TestEffectivePermission_AbsentResourceIsNone(t *testing.T) {
	f := newFixture(t)

	perm, err := f.svc.EffectivePermission(context.Background(), bob, vault.FileResource("no-such-link"))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionNone, perm)
}

func TestEffectivePermission_DirectGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("shared"), "shared.txt", nil)
	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionEditor, perm)
}

func TestEffectivePermission_InheritedFromAncestor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.folder(t, alice, "top", nil)
	mid := f.folder(t, alice, "mid", &top.ID)
	link := f.ingest(t, alice, []byte("deep"), "deep.txt", &mid.ID)

	// Grant on the grandparent flows down to the file two levels below.
	_, err := f.svc.Share(ctx, vault.FolderResource(top.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionViewer, perm)

	// The subfolder inherits too.
	perm, err = f.svc.EffectivePermission(ctx, bob, vault.FolderResource(mid.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionViewer, perm)
}

func TestEffectivePermission_SubfolderGrantDoesNotFlowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	top := f.folder(t, alice, "top", nil)
	sub := f.folder(t, alice, "sub", &top.ID)

	_, err := f.svc.Share(ctx, vault.FolderResource(sub.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FolderResource(top.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionNone, perm)
}

func TestEffectivePermission_DirectOverridesInherited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "docs", nil)
	link := f.ingest(t, alice, []byte("doc"), "doc.txt", &folder.ID)

	// Editor on the folder, viewer directly on the file. The weaker direct
	// grant still wins.
	_, err := f.svc.Share(ctx, vault.FolderResource(folder.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionViewer, perm)
}

func TestEffectivePermission_NearestAncestorScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// F shared as viewer with carol; F/G granted editor directly.
	folderF := f.folder(t, alice, "F", nil)
	folderG := f.folder(t, alice, "G", &folderF.ID)
	fileInF := f.ingest(t, alice, []byte("in F"), "f.txt", &folderF.ID)
	fileInG := f.ingest(t, alice, []byte("in G"), "g.txt", &folderG.ID)

	_, err := f.svc.Share(ctx, vault.FolderResource(folderF.ID), alice, string(carol), vault.PermissionViewer, nil)
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, vault.FolderResource(folderG.ID), alice, string(carol), vault.PermissionEditor, nil)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, carol, vault.FileResource(fileInF.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionViewer, perm)

	perm, err = f.svc.EffectivePermission(ctx, carol, vault.FileResource(fileInG.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionEditor, perm)
}

func TestEffectivePermission_ExpiryIsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("timed"), "timed.txt", nil)
	expiry := f.clock.Now().Add(time.Hour)
	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionEditor, &expiry)
	require.NoError(t, err)

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionEditor, perm)

	// After expiry the same call yields none; nothing is cached.
	f.clock.Advance(2 * time.Hour)
	perm, err = f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionNone, perm)
}

func TestEffectivePermission_ExpiredDirectFallsBackToAncestor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, alice, "docs", nil)
	link := f.ingest(t, alice, []byte("doc"), "doc.txt", &folder.ID)

	expiry := f.clock.Now().Add(time.Hour)
	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, &expiry)
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, vault.FolderResource(folder.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionEditor, perm)
}

func TestShare_InvalidLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	for _, level := range []vault.Permission{vault.PermissionNone, vault.PermissionOwner} {
		_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), level, nil)
		code, ok := vault.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, vault.CodeInvalidPermission, code)
	}
}

func TestShare_WithSelf(t *testing.T) {
	f := newFixture(t)
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	_, err := f.svc.Share(context.Background(), vault.FileResource(link.ID), alice, string(alice), vault.PermissionViewer, nil)
	code, ok := vault.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vault.CodeInvalidArgument, code)
}

func TestShare_NonOwnerCannotGrant(t *testing.T) {
	f := newFixture(t)
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	_, err := f.svc.Share(context.Background(), vault.FileResource(link.ID), bob, string(carol), vault.PermissionViewer, nil)
	assert.True(t, vault.IsNotOwner(err))
}

func TestShare_ReShareUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	first, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.GrantedAt, second.GrantedAt)
	assert.Equal(t, vault.PermissionEditor, second.Permission)

	grants, err := f.svc.ListGrants(ctx, vault.FileResource(link.ID), alice)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, vault.PermissionEditor, grants[0].Permission)
}

func TestShare_EmailResolvesToPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	grant, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, "carol@example.com", vault.PermissionViewer, nil)
	require.NoError(t, err)
	assert.Equal(t, string(carol), grant.Target)

	perm, err := f.svc.EffectivePermission(ctx, carol, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionViewer, perm)
}

func TestShare_UnknownEmailStoredPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	grant, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, "nobody@example.com", vault.PermissionViewer, nil)
	require.NoError(t, err)
	assert.Equal(t, "nobody@example.com", grant.Target)
}

func TestRevoke_RemovesGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionEditor, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Revoke(ctx, vault.FileResource(link.ID), alice, string(bob)))

	perm, err := f.svc.EffectivePermission(ctx, bob, vault.FileResource(link.ID))
	require.NoError(t, err)
	assert.Equal(t, vault.PermissionNone, perm)

	// Revoking again is a no-op.
	assert.NoError(t, f.svc.Revoke(ctx, vault.FileResource(link.ID), alice, string(bob)))
}

func TestListGrants_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)

	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	_, err = f.svc.ListGrants(ctx, vault.FileResource(link.ID), bob)
	assert.True(t, vault.IsNotOwner(err))
}

func TestSharedWithMe_FiltersExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	la := f.ingest(t, alice, []byte("one"), "one.txt", nil)
	lb := f.ingest(t, alice, []byte("two"), "two.txt", nil)

	expiry := f.clock.Now().Add(time.Hour)
	_, err := f.svc.Share(ctx, vault.FileResource(la.ID), alice, string(bob), vault.PermissionViewer, &expiry)
	require.NoError(t, err)
	_, err = f.svc.Share(ctx, vault.FileResource(lb.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	shared, err := f.svc.SharedWithMe(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, shared, 2)

	f.clock.Advance(2 * time.Hour)
	shared, err = f.svc.SharedWithMe(ctx, bob)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, vault.FileResource(lb.ID), shared[0].Resource)
}
