package vault

import (
	"context"

	"github.com/google/uuid"
)

// Star marks a file link or folder as a favorite. The item must exist and
// be visible to the caller. Starring twice keeps the original entry.
func (s *Service) Star(ctx context.Context, userID UserID, kind ItemKind, itemID string) error {
	switch kind {
	case ItemFile:
		link, err := s.store.GetLink(ctx, LinkID(itemID))
		if err != nil {
			return err
		}
		if link.UserID != userID {
			perm, err := s.EffectivePermission(ctx, userID, FileResource(link.ID))
			if err != nil {
				return err
			}
			if !perm.Allows(PermissionViewer) {
				return notFound("file", itemID)
			}
		}
	case ItemFolder:
		folder, err := s.store.GetFolder(ctx, FolderID(itemID))
		if err != nil {
			return err
		}
		if folder.OwnerID != userID {
			perm, err := s.EffectivePermission(ctx, userID, FolderResource(folder.ID))
			if err != nil {
				return err
			}
			if !perm.Allows(PermissionViewer) {
				return notFound("folder", itemID)
			}
		}
	default:
		return &StoreError{Code: CodeInvalidArgument, Message: "unknown item kind", Path: string(kind)}
	}

	return s.store.PutStarred(ctx, StarredItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		ItemID:    itemID,
		StarredAt: s.clock.Now(),
	})
}

// Unstar removes a favorite. Idempotent.
func (s *Service) Unstar(ctx context.Context, userID UserID, kind ItemKind, itemID string) error {
	return s.store.DeleteStarred(ctx, userID, kind, itemID)
}

// ListStarred returns the caller's favorites.
func (s *Service) ListStarred(ctx context.Context, userID UserID) ([]StarredItem, error) {
	return s.store.ListStarred(ctx, userID)
}
