package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

func TestDownload_RecordsLedgerEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("audited")

	link := f.ingest(t, alice, data, "audited.txt", nil)

	result, err := f.svc.Download(ctx, alice, link.ID)
	require.NoError(t, err)
	assert.Equal(t, data, readAll(t, result.Content))
	assert.Equal(t, "audited.txt", result.Filename)
	assert.Equal(t, int64(len(data)), result.Size)

	_, err = f.svc.Preview(ctx, alice, link.ID)
	require.NoError(t, err)

	activity, err := f.svc.ActivityFor(ctx, alice, link.ID)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, vault.ActivityDownload, activity[0].Kind)
	assert.Equal(t, vault.ActivityPreview, activity[1].Kind)
	assert.Equal(t, alice, activity[0].UserID)
}

func TestDownload_ShareeAccessIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("shared"), "shared.txt", nil)
	_, err := f.svc.Share(ctx, vault.FileResource(link.ID), alice, string(bob), vault.PermissionViewer, nil)
	require.NoError(t, err)

	result, err := f.svc.Download(ctx, bob, link.ID)
	require.NoError(t, err)
	_ = result.Content.Close()

	activity, err := f.svc.ActivityFor(ctx, alice, link.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, bob, activity[0].UserID)
}

func TestDownload_UnauthorizedLooksAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("secret"), "secret.txt", nil)

	_, errDenied := f.svc.Download(ctx, bob, link.ID)
	_, errAbsent := f.svc.Download(ctx, bob, "no-such-link")

	require.Error(t, errDenied)
	assert.True(t, vault.IsNotFound(errDenied))
	assert.True(t, vault.IsNotFound(errAbsent))
}

func TestRecordActivity_InvalidKind(t *testing.T) {
	f := newFixture(t)

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	err := f.svc.RecordActivity(context.Background(), link.Digest, alice, "upload")
	code, ok := vault.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, vault.CodeInvalidArgument, code)
}

func TestActivityFor_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	link := f.ingest(t, alice, []byte("x"), "x.txt", nil)
	_, err := f.svc.ActivityFor(ctx, bob, link.ID)
	assert.True(t, vault.IsNotFound(err))
}

func TestActivityFor_SharedByDigest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := []byte("dedup ledger")

	la := f.ingest(t, alice, data, "a.txt", nil)
	lb := f.ingest(t, bob, data, "b.txt", nil)

	result, err := f.svc.Download(ctx, alice, la.ID)
	require.NoError(t, err)
	_ = result.Content.Close()

	// The ledger hangs off the content record, so both owners of the same
	// bytes see the same history.
	activity, err := f.svc.ActivityFor(ctx, bob, lb.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, alice, activity[0].UserID)
}
