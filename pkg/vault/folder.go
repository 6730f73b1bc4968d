package vault

import (
	"context"

	"github.com/google/uuid"
)

// CreateFolder creates a folder under parentID (nil = top level) for
// userID. Fails with CodeDuplicateName when the name is taken in that
// position.
func (s *Service) CreateFolder(ctx context.Context, userID UserID, name string, parentID *FolderID) (*Folder, error) {
	if name == "" {
		return nil, &StoreError{Code: CodeInvalidArgument, Message: "folder name is required"}
	}

	if parentID != nil {
		if _, err := s.ownedFolder(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	folder := Folder{
		ID:        FolderID(uuid.NewString()),
		OwnerID:   userID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: s.clock.Now(),
	}

	if err := s.store.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// RenameFolder renames one of the caller's folders in place.
func (s *Service) RenameFolder(ctx context.Context, userID UserID, folderID FolderID, newName string) error {
	if newName == "" {
		return &StoreError{Code: CodeInvalidArgument, Message: "folder name is required"}
	}

	if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
		return err
	}
	return s.store.RenameFolder(ctx, folderID, newName)
}

// MoveLink places one of the caller's active file links in another of their
// folders (nil = root).
func (s *Service) MoveLink(ctx context.Context, userID UserID, linkID LinkID, targetFolderID *FolderID) error {
	link, err := s.ownedLink(ctx, userID, linkID)
	if err != nil {
		return err
	}
	if link.Trashed() {
		return notFound("file", string(linkID))
	}

	if targetFolderID != nil {
		if _, err := s.ownedFolder(ctx, userID, *targetFolderID); err != nil {
			return err
		}
	}

	return s.store.SetLinkFolder(ctx, linkID, targetFolderID)
}

// MoveFolder reparents one of the caller's folders (nil = top level).
// Moving a folder under itself or one of its descendants fails with
// CodeCyclicFolder; the cycle check runs atomically with the reparent
// inside the store.
func (s *Service) MoveFolder(ctx context.Context, userID UserID, folderID FolderID, newParentID *FolderID) error {
	if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
		return err
	}
	if newParentID != nil {
		if _, err := s.ownedFolder(ctx, userID, *newParentID); err != nil {
			return err
		}
	}

	return s.store.SetFolderParent(ctx, folderID, newParentID)
}

// DeleteFolder removes a folder.
//
// Non-recursive deletion loses nothing: direct child links go to the root
// (FolderID nil) and child folders are promoted to the deleted folder's
// parent. A name collision among promoted folders aborts the whole
// operation with CodeDuplicateName before anything is touched.
//
// Recursive deletion cascades: every descendant link is trashed (still
// recoverable) and every descendant folder is removed.
//
// Folder mutations are expected to be serialized per user by the calling
// layer; they are not hot-path operations.
func (s *Service) DeleteFolder(ctx context.Context, userID UserID, folderID FolderID, recursive bool) error {
	folder, err := s.ownedFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}

	if recursive {
		return s.deleteFolderRecursive(ctx, userID, folder)
	}
	return s.deleteFolderPromote(ctx, userID, folder)
}

// deleteFolderPromote re-homes direct children, then removes the node.
func (s *Service) deleteFolderPromote(ctx context.Context, userID UserID, folder *Folder) error {
	childFolders, err := s.store.ListFolders(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}

	// Check all promotions before applying any, so a collision leaves the
	// tree untouched.
	siblings, err := s.store.ListFolders(ctx, userID, folder.ParentID)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(siblings))
	for _, sib := range siblings {
		if sib.ID != folder.ID {
			taken[sib.Name] = true
		}
	}
	for _, child := range childFolders {
		if taken[child.Name] {
			return &StoreError{
				Code:    CodeDuplicateName,
				Message: "promoting folder would collide with sibling",
				Path:    child.Name,
			}
		}
	}

	links, err := s.store.ListLinks(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := s.store.SetLinkFolder(ctx, link.ID, nil); err != nil {
			return err
		}
	}

	for _, child := range childFolders {
		if err := s.store.SetFolderParent(ctx, child.ID, folder.ParentID); err != nil {
			return err
		}
	}

	return s.store.DeleteFolder(ctx, folder.ID)
}

// deleteFolderRecursive trashes every descendant link and removes every
// descendant folder, depth-first.
func (s *Service) deleteFolderRecursive(ctx context.Context, userID UserID, folder *Folder) error {
	children, err := s.store.ListFolders(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := s.deleteFolderRecursive(ctx, userID, &children[i]); err != nil {
			return err
		}
	}

	links, err := s.store.ListLinks(ctx, userID, &folder.ID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, link := range links {
		if err := s.store.TrashLink(ctx, link.ID, now); err != nil {
			return err
		}
	}

	return s.store.DeleteFolder(ctx, folder.ID)
}

// ListChildren returns the caller's folders and active file links directly
// under parentID (nil = root).
func (s *Service) ListChildren(ctx context.Context, userID UserID, parentID *FolderID) ([]Folder, []OwnershipLink, error) {
	if parentID != nil {
		if _, err := s.ownedFolder(ctx, userID, *parentID); err != nil {
			return nil, nil, err
		}
	}

	folders, err := s.store.ListFolders(ctx, userID, parentID)
	if err != nil {
		return nil, nil, err
	}
	links, err := s.store.ListLinks(ctx, userID, parentID)
	if err != nil {
		return nil, nil, err
	}
	return folders, links, nil
}

// ResolvePath returns a folder's ancestor chain root-first, ending with the
// folder itself.
func (s *Service) ResolvePath(ctx context.Context, userID UserID, folderID FolderID) ([]Folder, error) {
	if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}
	return s.store.FolderPath(ctx, folderID)
}
