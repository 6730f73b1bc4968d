package vault_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	blobmem "github.com/marmos91/dittovault/pkg/blob/memory"
	"github.com/marmos91/dittovault/pkg/vault"
	vaultmem "github.com/marmos91/dittovault/pkg/vault/memory"
)

const (
	alice = vault.UserID("alice")
	bob   = vault.UserID("bob")
	carol = vault.UserID("carol")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// seqTokens mints predictable tokens so tests can assert on them.
type seqTokens struct {
	n int
}

func (s *seqTokens) NewToken() (vault.Token, error) {
	s.n++
	return vault.Token(fmt.Sprintf("token-%d", s.n)), nil
}

type fixture struct {
	svc    *vault.Service
	blobs  *blobmem.MemoryStore
	clock  *fakeClock
	tokens *seqTokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &seqTokens{}
	blobs := blobmem.NewMemoryStore()

	svc, err := vault.NewService(vault.ServiceConfig{
		Store: vaultmem.NewMemoryStore(),
		Blobs: blobs,
		Identity: &vault.StaticIdentity{
			Users: map[vault.UserID]bool{
				alice: true,
				bob:   true,
				carol: true,
			},
			Emails: map[string]vault.UserID{
				"carol@example.com": carol,
			},
		},
		Clock:  clock,
		Tokens: tokens,
	})
	require.NoError(t, err)

	return &fixture{svc: svc, blobs: blobs, clock: clock, tokens: tokens}
}

func (f *fixture) ingest(t *testing.T, user vault.UserID, data []byte, filename string, folderID *vault.FolderID) *vault.OwnershipLink {
	t.Helper()
	link, err := f.svc.Ingest(context.Background(), data, filename, "application/octet-stream", user, folderID)
	require.NoError(t, err)
	return link
}

func (f *fixture) folder(t *testing.T, user vault.UserID, name string, parentID *vault.FolderID) *vault.Folder {
	t.Helper()
	folder, err := f.svc.CreateFolder(context.Background(), user, name, parentID)
	require.NoError(t, err)
	return folder
}

func readAll(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}
