package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/marmos91/dittovault/internal/logger"
)

// ComputeDigest returns the content identity for raw bytes: hex-encoded
// SHA-256. Exported so callers can pre-compute digests (e.g. client-side
// dedup probes) with the exact algorithm the vault uses.
func ComputeDigest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// storagePath derives the blob key for a digest. The two-character fan-out
// keeps object listings manageable on filesystem-like backends. Because the
// path is a pure function of the digest, concurrent uploads of identical
// bytes write the same object and cannot orphan one another.
func storagePath(digest Digest) string {
	d := string(digest)
	if len(d) < 2 {
		return "content/" + d
	}
	return "content/" + d[:2] + "/" + d
}

// Ingest stores bytes for a user and returns their ownership link.
//
// The digest decides everything. If a content record already exists the
// bytes are not written again: the record's reference count is incremented
// and a new link is created. If the user already holds a link for the
// digest (active or trashed), that link is returned unchanged; repeated
// uploads of the same bytes by the same user are idempotent.
//
// For a new digest the blob is written first. Only a successful write is
// followed by the metadata commit, so a blob failure leaves no record
// claiming bytes that never landed. The commit itself re-checks existence:
// when two users race to first-upload the same bytes, one commit creates
// the record and the other increments it. The double blob write is benign
// because both target the same digest-derived key.
//
// A metadata failure after a successful blob write can strand the object.
// That is the accepted failure direction: an orphaned blob costs storage
// and is reconcilable (the key is the digest, a later upload reuses it),
// whereas a record without bytes would be a consistency bug. The orphan is
// logged, never silent.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, mimeType string, userID UserID, folderID *FolderID) (*OwnershipLink, error) {
	if filename == "" {
		return nil, &StoreError{Code: CodeInvalidArgument, Message: "filename is required"}
	}

	known, err := s.identity.ResolvePrincipal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	if !known {
		return nil, notFound("principal", string(userID))
	}

	if folderID != nil {
		if _, err := s.ownedFolder(ctx, userID, *folderID); err != nil {
			return nil, err
		}
	}

	digest := ComputeDigest(data)
	now := s.clock.Now()

	rec := ContentRecord{
		Digest:      digest,
		StoragePath: storagePath(digest),
		Filename:    filename,
		MimeType:    mimeType,
		Size:        int64(len(data)),
		RefCount:    1,
		Visibility:  VisibilityPrivate,
		CreatedAt:   now,
	}
	link := OwnershipLink{
		ID:         LinkID(uuid.NewString()),
		UserID:     userID,
		Digest:     digest,
		Role:       RoleOwner,
		FolderID:   folderID,
		Filename:   filename,
		UploadedAt: now,
	}

	// Fast path: the record exists, no bytes need to move.
	if _, err := s.store.GetContent(ctx, digest); err == nil {
		stored, created, err := s.store.IngestContent(ctx, rec, link)
		if err != nil {
			return nil, err
		}
		if created {
			// The record vanished between the check and the commit (a
			// racing purge took the last reference). Our commit recreated
			// it, so the bytes have to land after all.
			if err := s.blobs.Put(ctx, rec.StoragePath, data); err != nil {
				logger.Error("ingest: blob restore for recreated content %s failed: %v", digest, err)
				if _, _, perr := s.rollbackIngest(ctx, stored.ID); perr != nil {
					logger.Error("ingest: rollback of %s failed: %v", stored.ID, perr)
				}
				return nil, fmt.Errorf("blob write for %s: %w", digest, err)
			}
		}
		return stored, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	// First upload of this digest: bytes land before metadata.
	if err := s.blobs.Put(ctx, rec.StoragePath, data); err != nil {
		return nil, fmt.Errorf("blob write for %s: %w", digest, err)
	}

	stored, created, err := s.store.IngestContent(ctx, rec, link)
	if err != nil {
		logger.Error("ingest: metadata commit failed after blob write, orphaned blob at %s: %v", rec.StoragePath, err)
		return nil, err
	}

	if created {
		logger.Debug("ingest: created content %s (%d bytes) for user %s", digest, rec.Size, userID)
	} else {
		logger.Debug("ingest: reused content %s for user %s", digest, userID)
	}

	return stored, nil
}

// rollbackIngest trashes and purges a link that was just created, undoing a
// failed ingest. Returns the PurgeLink results for logging.
func (s *Service) rollbackIngest(ctx context.Context, id LinkID) (*ContentRecord, bool, error) {
	if err := s.store.TrashLink(ctx, id, s.clock.Now()); err != nil {
		return nil, false, err
	}
	return s.store.PurgeLink(ctx, id)
}

// SaveShared adds someone else's shared file to the caller's own storage:
// a new ownership link against the same digest, incrementing the reference
// count. Requires at least viewer permission on the source link. Idempotent
// per (user, digest) like Ingest.
func (s *Service) SaveShared(ctx context.Context, userID UserID, sourceLinkID LinkID) (*OwnershipLink, error) {
	source, err := s.store.GetLink(ctx, sourceLinkID)
	if err != nil {
		return nil, err
	}

	perm, err := s.EffectivePermission(ctx, userID, FileResource(sourceLinkID))
	if err != nil {
		return nil, err
	}
	if !perm.Allows(PermissionViewer) {
		return nil, notFound("file", string(sourceLinkID))
	}

	rec, err := s.store.GetContent(ctx, source.Digest)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	link := OwnershipLink{
		ID:         LinkID(uuid.NewString()),
		UserID:     userID,
		Digest:     source.Digest,
		Role:       RoleOwner,
		Filename:   source.Filename,
		UploadedAt: now,
	}

	stored, created, err := s.store.IngestContent(ctx, *rec, link)
	if err != nil {
		return nil, err
	}
	if created {
		// The source content was purged between lookup and commit; there
		// are no bytes to share anymore. Undo and report the file gone.
		if _, _, perr := s.rollbackIngest(ctx, stored.ID); perr != nil {
			logger.Error("save-shared: rollback of %s failed: %v", stored.ID, perr)
		}
		return nil, notFound("file", string(sourceLinkID))
	}
	return stored, nil
}

// GetContentRecord exposes the deduplicated record behind one of the
// caller's links.
func (s *Service) GetContentRecord(ctx context.Context, userID UserID, linkID LinkID) (*ContentRecord, error) {
	link, err := s.ownedLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	return s.store.GetContent(ctx, link.Digest)
}
