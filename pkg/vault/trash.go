package vault

import (
	"context"
	"time"

	"github.com/marmos91/dittovault/internal/logger"
)

// Dereference soft-deletes one of the caller's links: the file moves to
// trash and stays recoverable. The content record's reference count is not
// touched; only purge decrements it.
func (s *Service) Dereference(ctx context.Context, userID UserID, linkID LinkID) error {
	link, err := s.ownedLink(ctx, userID, linkID)
	if err != nil {
		return err
	}
	if link.Trashed() {
		return notFound("file", string(linkID))
	}
	return s.store.TrashLink(ctx, linkID, s.clock.Now())
}

// Restore returns a trashed link to active. Fails with CodeNotTrashed when
// the link is not in trash.
func (s *Service) Restore(ctx context.Context, userID UserID, linkID LinkID) error {
	if _, err := s.ownedLink(ctx, userID, linkID); err != nil {
		return err
	}
	return s.store.RestoreLink(ctx, linkID)
}

// ListTrash returns the caller's trashed links, most recently trashed
// first.
func (s *Service) ListTrash(ctx context.Context, userID UserID) ([]OwnershipLink, error) {
	return s.store.ListTrash(ctx, userID)
}

// Purge hard-deletes a trashed link. The reference count drops by one; if
// it reaches zero the content record and its ledger entries go with it and
// the blob is deleted. Purged is terminal.
//
// Blob deletion failure does not undo the metadata removal: storage usage
// reporting stays accurate and the orphaned object is logged for
// out-of-band reconciliation. The reverse order would risk a record that
// claims zero references while the blob still serves.
func (s *Service) Purge(ctx context.Context, userID UserID, linkID LinkID) error {
	if _, err := s.ownedLink(ctx, userID, linkID); err != nil {
		return err
	}
	return s.purgeLink(ctx, linkID)
}

// purgeLink removes a trashed link and cleans up the blob when the last
// reference is gone. Shared by Purge, EmptyTrash and the retention sweeper.
func (s *Service) purgeLink(ctx context.Context, linkID LinkID) error {
	rec, removed, err := s.store.PurgeLink(ctx, linkID)
	if err != nil {
		return err
	}

	if removed {
		if err := s.blobs.Delete(ctx, rec.StoragePath); err != nil {
			logger.Error("purge: blob deletion for %s failed, orphaned object at %s: %v",
				rec.Digest, rec.StoragePath, err)
		} else {
			logger.Debug("purge: removed content %s and its blob", rec.Digest)
		}
	}
	return nil
}

// EmptyTrash purges every trashed link the caller has. Returns the number
// of links purged.
func (s *Service) EmptyTrash(ctx context.Context, userID UserID) (int, error) {
	trashed, err := s.store.ListTrash(ctx, userID)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, link := range trashed {
		if err := s.purgeLink(ctx, link.ID); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

// ListTrashedBefore returns every link (any user) trashed at or before the
// cutoff. Consumed by the retention sweeper.
func (s *Service) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]OwnershipLink, error) {
	return s.store.ListTrashedBefore(ctx, cutoff)
}

// PurgeTrashedBefore purges every link trashed at or before the cutoff.
// This is the retention policy's enforcement point; the retention window
// itself is configuration, not vault logic. Returns the number purged.
func (s *Service) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.store.ListTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, link := range expired {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := s.purgeLink(ctx, link.ID); err != nil {
			// Keep sweeping; one stuck link must not pin everyone's
			// trash forever.
			logger.Error("retention purge of link %s failed: %v", link.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}
