package vault_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestIngest_RefCountEqualsUploaderCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("shared bytes")

	la := f.ingest(t, alice, data, "a.bin", nil)
	lb := f.ingest(t, bob, data, "b.bin", nil)
	lc := f.ingest(t, carol, data, "c.bin", nil)

	assert.Equal(t, la.Digest, lb.Digest)
	assert.Equal(t, la.Digest, lc.Digest)
	assert.NotEqual(t, la.ID, lb.ID)

	rec, err := f.svc.GetContentRecord(ctx, alice, la.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), rec.RefCount)

	// One blob, not three.
	assert.Equal(t, 1, f.blobs.Len())
}

func TestIngest_SameUserIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("once")

	first := f.ingest(t, alice, data, "one.txt", nil)
	second := f.ingest(t, alice, data, "renamed.txt", nil)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "one.txt", second.Filename)

	rec, err := f.svc.GetContentRecord(ctx, alice, first.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.RefCount)
}

func TestIngest_EachUserKeepsOwnFilename(t *testing.T) {
	f := newFixture(t)
	data := []byte("same content, different names")

	la := f.ingest(t, alice, data, "report.pdf", nil)
	lb := f.ingest(t, bob, data, "copy.pdf", nil)

	assert.Equal(t, "report.pdf", la.Filename)
	assert.Equal(t, "copy.pdf", lb.Filename)
}

func TestIngest_EmptyFilename(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), []byte("x"), "", "text/plain", alice, nil)
	code, ok := vault.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vault.CodeInvalidArgument, code)
}

func TestIngest_UnknownPrincipal(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), []byte("x"), "x.txt", "text/plain", "mallory", nil)
	assert.True(t, vault.IsNotFound(err))
}

func TestIngest_IntoFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	docs := f.folder(t, alice, "docs", nil)

	link := f.ingest(t, alice, []byte("filed"), "filed.txt", &docs.ID)
	require.NotNil(t, link.FolderID)
	assert.Equal(t, docs.ID, *link.FolderID)

	_, links, err := f.svc.ListChildren(ctx, alice, &docs.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, link.ID, links[0].ID)
}

func TestIngest_ForeignFolderRejected(t *testing.T) {
	f := newFixture(t)
	docs := f.folder(t, bob, "docs", nil)

	_, err := f.svc.Ingest(context.Background(), []byte("x"), "x.txt", "text/plain", alice, &docs.ID)
	assert.True(t, vault.IsNotFound(err))
}

func TestIngest_BlobWriteFailureLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.blobs.FailPuts(true)
	_, err := f.svc.Ingest(ctx, []byte("doomed"), "doomed.txt", "text/plain", alice, nil)
	require.Error(t, err)

	// The failed upload must not have committed metadata: a retry after the
	// blob store recovers behaves like a first upload.
	f.blobs.FailPuts(false)
	link := f.ingest(t, alice, []byte("doomed"), "doomed.txt", nil)

	rec, err := f.svc.GetContentRecord(ctx, alice, link.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.RefCount)
}

func TestSaveShared_CreatesOwnLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := f.ingest(t, alice, []byte("shared doc"), "doc.txt", nil)
	_, err := f.svc.Share(ctx, vault.FileResource(source.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	saved, err := f.svc.SaveShared(ctx, bob, source.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, saved.UserID)
	assert.Equal(t, source.Digest, saved.Digest)
	assert.NotEqual(t, source.ID, saved.ID)

	rec, err := f.svc.GetContentRecord(ctx, bob, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.RefCount)
}

func TestSaveShared_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	source := f.ingest(t, alice, []byte("shared doc"), "doc.txt", nil)
	_, err := f.svc.Share(ctx, vault.FileResource(source.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	first, err := f.svc.SaveShared(ctx, bob, source.ID)
	require.NoError(t, err)
	second, err := f.svc.SaveShared(ctx, bob, source.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	rec, err := f.svc.GetContentRecord(ctx, bob, first.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.RefCount)
}

func TestSaveShared_WithoutPermission(t *testing.T) {
	f := newFixture(t)

	source := f.ingest(t, alice, []byte("private"), "private.txt", nil)
	_, err := f.svc.SaveShared(context.Background(), bob, source.ID)
	assert.True(t, vault.IsNotFound(err))
}

func TestIngest_ConcurrentFirstUploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("raced bytes")

	users := []vault.UserID{alice, bob, carol}
	links := make([]*vault.OwnershipLink, len(users))

	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user vault.UserID) {
			defer wg.Done()
			link, err := f.svc.Ingest(ctx, data, "raced.bin", "application/octet-stream", user, nil)
			assert.NoError(t, err)
			links[i] = link
		}(i, user)
	}
	wg.Wait()

	// Exactly one record exists regardless of upload order: one creator,
	// the rest incrementers.
	rec, err := f.svc.GetContentRecord(ctx, alice, links[0].ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(users)), rec.RefCount)
	assert.Equal(t, 1, f.blobs.Len())
}

func TestGetContentRecord_OtherUsersLink(t *testing.T) {
	f := newFixture(t)

	link := f.ingest(t, alice, []byte("mine"), "mine.txt", nil)
	_, err := f.svc.GetContentRecord(context.Background(), bob, link.ID)
	assert.True(t, vault.IsNotFound(err))
}
