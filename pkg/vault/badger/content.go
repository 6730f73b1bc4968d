package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittovault/pkg/vault"
)

// ============================================================================
// Content records and ownership links
// ============================================================================

func (s *BadgerStore) IngestContent(ctx context.Context, rec vault.ContentRecord, link vault.OwnershipLink) (*vault.OwnershipLink, bool, error) {
	var (
		out     vault.OwnershipLink
		created bool
	)

	err := s.update(ctx, func(txn *badger.Txn) error {
		out, created = vault.OwnershipLink{}, false

		// One link per (user, digest): an existing link wins, active or
		// trashed, and nothing else changes.
		idxKey := keyUserDigest(link.UserID, rec.Digest)
		existingID, err := getBytes(txn, idxKey)
		if err == nil {
			if err := getJSON(txn, keyLink(vault.LinkID(existingID)), &out); err != nil {
				return fmt.Errorf("loading existing link %q: %w", existingID, err)
			}
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("reading user digest index: %w", err)
		}

		var stored vault.ContentRecord
		err = getJSON(txn, keyContent(rec.Digest), &stored)
		switch {
		case err == nil:
			stored.RefCount++
		case errors.Is(err, badger.ErrKeyNotFound):
			stored = rec
			created = true
		default:
			return fmt.Errorf("reading content record: %w", err)
		}
		if err := setJSON(txn, keyContent(rec.Digest), stored); err != nil {
			return err
		}

		if err := setJSON(txn, keyLink(link.ID), link); err != nil {
			return err
		}
		if err := txn.Set(idxKey, []byte(link.ID)); err != nil {
			return err
		}
		if err := txn.Set(keyFolderLink(link.UserID, link.FolderID, link.ID), nil); err != nil {
			return err
		}
		out = link
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, created, nil
}

func (s *BadgerStore) GetContent(ctx context.Context, digest vault.Digest) (*vault.ContentRecord, error) {
	var rec vault.ContentRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyContent(digest), &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("content", string(digest))
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) GetLink(ctx context.Context, id vault.LinkID) (*vault.OwnershipLink, error) {
	var link vault.OwnershipLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyLink(id), &link)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("link", string(id))
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *BadgerStore) FindLink(ctx context.Context, userID vault.UserID, digest vault.Digest) (*vault.OwnershipLink, error) {
	var link vault.OwnershipLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		id, err := getBytes(txn, keyUserDigest(userID, digest))
		if err != nil {
			return err
		}
		return getJSON(txn, keyLink(vault.LinkID(id)), &link)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("link", string(digest))
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *BadgerStore) ListLinks(ctx context.Context, userID vault.UserID, folderID *vault.FolderID) ([]vault.OwnershipLink, error) {
	var out []vault.OwnershipLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		prefix := prefixFolderLink(userID, folderID)
		for _, key := range keysWithPrefix(txn, prefix) {
			id := vault.LinkID(key[len(prefix):])
			var link vault.OwnershipLink
			if err := getJSON(txn, keyLink(id), &link); err != nil {
				return fmt.Errorf("loading link %q: %w", id, err)
			}
			out = append(out, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (s *BadgerStore) SetLinkFolder(ctx context.Context, id vault.LinkID, folderID *vault.FolderID) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var link vault.OwnershipLink
		err := getJSON(txn, keyLink(id), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("link", string(id))
		}
		if err != nil {
			return err
		}
		if link.Trashed() {
			return notFoundErr("link", string(id))
		}

		if err := txn.Delete(keyFolderLink(link.UserID, link.FolderID, link.ID)); err != nil {
			return err
		}
		link.FolderID = folderID
		if err := txn.Set(keyFolderLink(link.UserID, link.FolderID, link.ID), nil); err != nil {
			return err
		}
		return setJSON(txn, keyLink(id), link)
	})
}

func (s *BadgerStore) TrashLink(ctx context.Context, id vault.LinkID, at time.Time) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var link vault.OwnershipLink
		err := getJSON(txn, keyLink(id), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("link", string(id))
		}
		if err != nil {
			return err
		}
		if link.Trashed() {
			return notFoundErr("link", string(id))
		}

		if err := txn.Delete(keyFolderLink(link.UserID, link.FolderID, link.ID)); err != nil {
			return err
		}
		if err := txn.Set(keyTrash(link.UserID, link.ID), nil); err != nil {
			return err
		}
		link.TrashedAt = &at
		return setJSON(txn, keyLink(id), link)
	})
}

func (s *BadgerStore) RestoreLink(ctx context.Context, id vault.LinkID) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var link vault.OwnershipLink
		err := getJSON(txn, keyLink(id), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("link", string(id))
		}
		if err != nil {
			return err
		}
		if !link.Trashed() {
			return &vault.StoreError{Code: vault.CodeNotTrashed, Message: "link is not in trash", Path: string(id)}
		}
		link.TrashedAt = nil

		// The folder may have been removed while the link sat in trash;
		// restore to root in that case rather than to a dangling id.
		if link.FolderID != nil {
			_, err := txn.Get(keyFolder(*link.FolderID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				link.FolderID = nil
			} else if err != nil {
				return err
			}
		}

		if err := txn.Delete(keyTrash(link.UserID, link.ID)); err != nil {
			return err
		}
		if err := txn.Set(keyFolderLink(link.UserID, link.FolderID, link.ID), nil); err != nil {
			return err
		}
		return setJSON(txn, keyLink(id), link)
	})
}

func (s *BadgerStore) ListTrash(ctx context.Context, userID vault.UserID) ([]vault.OwnershipLink, error) {
	var out []vault.OwnershipLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		prefix := prefixTrashUser(userID)
		for _, key := range keysWithPrefix(txn, prefix) {
			id := vault.LinkID(key[len(prefix):])
			var link vault.OwnershipLink
			if err := getJSON(txn, keyLink(id), &link); err != nil {
				return fmt.Errorf("loading trashed link %q: %w", id, err)
			}
			out = append(out, link)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrashedAt.After(*out[j].TrashedAt) })
	return out, nil
}

func (s *BadgerStore) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]vault.OwnershipLink, error) {
	var out []vault.OwnershipLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		prefix := []byte(prefixTrash)
		for _, key := range keysWithPrefix(txn, prefix) {
			// tr: keys are "<userID>:<linkID>"; link ids are UUIDs and
			// never contain a colon.
			rest := string(key[len(prefix):])
			id := vault.LinkID(rest[strings.LastIndexByte(rest, ':')+1:])
			var link vault.OwnershipLink
			if err := getJSON(txn, keyLink(id), &link); err != nil {
				return fmt.Errorf("loading trashed link %q: %w", id, err)
			}
			if !link.TrashedAt.After(cutoff) {
				out = append(out, link)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrashedAt.Before(*out[j].TrashedAt) })
	return out, nil
}

func (s *BadgerStore) PurgeLink(ctx context.Context, id vault.LinkID) (*vault.ContentRecord, bool, error) {
	var (
		rec     vault.ContentRecord
		removed bool
	)

	err := s.update(ctx, func(txn *badger.Txn) error {
		rec, removed = vault.ContentRecord{}, false

		var link vault.OwnershipLink
		err := getJSON(txn, keyLink(id), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("link", string(id))
		}
		if err != nil {
			return err
		}
		if !link.Trashed() {
			return &vault.StoreError{Code: vault.CodeNotTrashed, Message: "link is not in trash", Path: string(id)}
		}

		err = getJSON(txn, keyContent(link.Digest), &rec)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("content", string(link.Digest))
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(keyLink(id)); err != nil {
			return err
		}
		if err := txn.Delete(keyUserDigest(link.UserID, link.Digest)); err != nil {
			return err
		}
		if err := txn.Delete(keyTrash(link.UserID, link.ID)); err != nil {
			return err
		}

		rec.RefCount--
		removed = rec.RefCount == 0
		if !removed {
			return setJSON(txn, keyContent(link.Digest), rec)
		}

		// Last reference gone: the record and its ledger go together.
		if err := txn.Delete(keyContent(link.Digest)); err != nil {
			return err
		}
		for _, key := range keysWithPrefix(txn, prefixActivityFor(link.Digest)) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	out := rec
	return &out, removed, nil
}
