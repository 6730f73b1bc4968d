package vaulttest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/vault"
)

// baseTime anchors fixture timestamps so ordering assertions are stable.
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// DigestOf returns the digest the vault would compute for the given bytes.
func DigestOf(data string) vault.Digest {
	sum := sha256.Sum256([]byte(data))
	return vault.Digest(hex.EncodeToString(sum[:]))
}

// NewRecord builds a content record fixture for a digest at RefCount 1.
func NewRecord(digest vault.Digest, filename string) vault.ContentRecord {
	return vault.ContentRecord{
		Digest:      digest,
		StoragePath: "content/" + string(digest[:2]) + "/" + string(digest),
		Filename:    filename,
		MimeType:    "application/octet-stream",
		Size:        int64(len(filename)) + 100,
		RefCount:    1,
		Visibility:  vault.VisibilityPrivate,
		CreatedAt:   baseTime,
	}
}

// NewLink builds an active ownership link fixture.
func NewLink(userID vault.UserID, digest vault.Digest, filename string) vault.OwnershipLink {
	return vault.OwnershipLink{
		ID:         vault.LinkID(uuid.NewString()),
		UserID:     userID,
		Digest:     digest,
		Role:       vault.RoleOwner,
		Filename:   filename,
		UploadedAt: baseTime,
	}
}

// NewFolder builds a folder fixture.
func NewFolder(ownerID vault.UserID, name string, parentID *vault.FolderID) vault.Folder {
	return vault.Folder{
		ID:        vault.FolderID(uuid.NewString()),
		OwnerID:   ownerID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: baseTime,
	}
}

// NewGrant builds a viewer grant fixture.
func NewGrant(res vault.Resource, owner vault.UserID, target string) vault.ShareGrant {
	return vault.ShareGrant{
		ID:         vault.GrantID(uuid.NewString()),
		Resource:   res,
		OwnerID:    owner,
		Target:     target,
		Permission: vault.PermissionViewer,
		GrantedAt:  baseTime,
	}
}

// NewPublicLink builds a public link fixture for a resource.
func NewPublicLink(res vault.Resource, owner vault.UserID) vault.PublicLink {
	return vault.PublicLink{
		Token:     vault.Token(uuid.NewString()),
		Resource:  res,
		OwnerID:   owner,
		CreatedAt: baseTime,
	}
}

// MustIngest ingests a (record, link) pair and fails the test on error.
func MustIngest(t *testing.T, store vault.MetadataStore, rec vault.ContentRecord, link vault.OwnershipLink) *vault.OwnershipLink {
	t.Helper()
	out, _, err := store.IngestContent(context.Background(), rec, link)
	require.NoError(t, err)
	return out
}

// MustTrash moves a link to trash and fails the test on error.
func MustTrash(t *testing.T, store vault.MetadataStore, id vault.LinkID, at time.Time) {
	t.Helper()
	require.NoError(t, store.TrashLink(context.Background(), id, at))
}

func folderIDPtr(id vault.FolderID) *vault.FolderID {
	return &id
}

func timePtr(t time.Time) *time.Time {
	return &t
}
