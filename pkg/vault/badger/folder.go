package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittovault/pkg/vault"
)

// ============================================================================
// Folders
// ============================================================================

func duplicateNameErr(name string) *vault.StoreError {
	return &vault.StoreError{Code: vault.CodeDuplicateName, Message: "folder name already in use", Path: name}
}

// nameTaken reports whether (owner, parent, name) is claimed by a folder
// other than exclude.
func nameTaken(txn *badger.Txn, ownerID vault.UserID, parentID *vault.FolderID, name string, exclude vault.FolderID) (bool, error) {
	id, err := getBytes(txn, keyFolderChild(ownerID, parentID, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return vault.FolderID(id) != exclude, nil
}

func (s *BadgerStore) CreateFolder(ctx context.Context, folder vault.Folder) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		taken, err := nameTaken(txn, folder.OwnerID, folder.ParentID, folder.Name, folder.ID)
		if err != nil {
			return err
		}
		if taken {
			return duplicateNameErr(folder.Name)
		}

		if err := txn.Set(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name), []byte(folder.ID)); err != nil {
			return err
		}
		return setJSON(txn, keyFolder(folder.ID), folder)
	})
}

func (s *BadgerStore) GetFolder(ctx context.Context, id vault.FolderID) (*vault.Folder, error) {
	var folder vault.Folder
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyFolder(id), &folder)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("folder", string(id))
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *BadgerStore) RenameFolder(ctx context.Context, id vault.FolderID, newName string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var folder vault.Folder
		err := getJSON(txn, keyFolder(id), &folder)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("folder", string(id))
		}
		if err != nil {
			return err
		}

		taken, err := nameTaken(txn, folder.OwnerID, folder.ParentID, newName, id)
		if err != nil {
			return err
		}
		if taken {
			return duplicateNameErr(newName)
		}

		if err := txn.Delete(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name)); err != nil {
			return err
		}
		folder.Name = newName
		if err := txn.Set(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name), []byte(id)); err != nil {
			return err
		}
		return setJSON(txn, keyFolder(id), folder)
	})
}

func (s *BadgerStore) SetFolderParent(ctx context.Context, id vault.FolderID, parentID *vault.FolderID) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var folder vault.Folder
		err := getJSON(txn, keyFolder(id), &folder)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("folder", string(id))
		}
		if err != nil {
			return err
		}

		// Cycle check: the new parent must not be the folder or below it.
		// Walking inside the transaction pins every folder on the chain, so
		// a concurrent reparent of an ancestor aborts one of the two.
		if parentID != nil {
			cur := parentID
			for cur != nil {
				if *cur == id {
					return &vault.StoreError{
						Code:    vault.CodeCyclicFolder,
						Message: "move would make folder its own descendant",
						Path:    string(id),
					}
				}
				var ancestor vault.Folder
				err := getJSON(txn, keyFolder(*cur), &ancestor)
				if errors.Is(err, badger.ErrKeyNotFound) {
					return notFoundErr("folder", string(*cur))
				}
				if err != nil {
					return err
				}
				cur = ancestor.ParentID
			}
		}

		taken, err := nameTaken(txn, folder.OwnerID, parentID, folder.Name, id)
		if err != nil {
			return err
		}
		if taken {
			return duplicateNameErr(folder.Name)
		}

		if err := txn.Delete(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name)); err != nil {
			return err
		}
		folder.ParentID = parentID
		if err := txn.Set(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name), []byte(id)); err != nil {
			return err
		}
		return setJSON(txn, keyFolder(id), folder)
	})
}

func (s *BadgerStore) DeleteFolder(ctx context.Context, id vault.FolderID) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var folder vault.Folder
		err := getJSON(txn, keyFolder(id), &folder)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("folder", string(id))
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(keyFolderChild(folder.OwnerID, folder.ParentID, folder.Name)); err != nil {
			return err
		}
		return txn.Delete(keyFolder(id))
	})
}

func (s *BadgerStore) ListFolders(ctx context.Context, ownerID vault.UserID, parentID *vault.FolderID) ([]vault.Folder, error) {
	var out []vault.Folder
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		var ids []vault.FolderID
		err := forEachValue(txn, prefixFolderChildren(ownerID, parentID), func(val []byte) error {
			ids = append(ids, vault.FolderID(val))
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			var folder vault.Folder
			if err := getJSON(txn, keyFolder(id), &folder); err != nil {
				return fmt.Errorf("loading folder %q: %w", id, err)
			}
			out = append(out, folder)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *BadgerStore) FolderPath(ctx context.Context, id vault.FolderID) ([]vault.Folder, error) {
	var chain []vault.Folder
	err := s.view(ctx, func(txn *badger.Txn) error {
		chain = nil
		cur := id
		for {
			var folder vault.Folder
			err := getJSON(txn, keyFolder(cur), &folder)
			if errors.Is(err, badger.ErrKeyNotFound) {
				if len(chain) == 0 {
					return notFoundErr("folder", string(cur))
				}
				return nil
			}
			if err != nil {
				return err
			}
			chain = append(chain, folder)
			if folder.ParentID == nil {
				return nil
			}
			cur = *folder.ParentID
		}
	})
	if err != nil {
		return nil, err
	}

	// chain is leaf-first; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
