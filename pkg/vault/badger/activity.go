package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittovault/pkg/vault"
)

// ============================================================================
// Activity ledger
// ============================================================================

func (s *BadgerStore) AppendActivity(ctx context.Context, rec vault.ActivityRecord) error {
	// The sequence is atomic on its own; claiming the number outside the
	// transaction just means retries reuse the same slot.
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("claiming activity sequence number: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, keyActivity(rec.Digest, seq, rec.ID), rec)
	})
}

func (s *BadgerStore) ListActivityByDigest(ctx context.Context, digest vault.Digest) ([]vault.ActivityRecord, error) {
	out := []vault.ActivityRecord{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = out[:0]
		return forEachValue(txn, prefixActivityFor(digest), func(val []byte) error {
			var rec vault.ActivityRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("unmarshaling activity record: %w", err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// Starred items (sorted oldest first on listing)
// ============================================================================

func (s *BadgerStore) PutStarred(ctx context.Context, item vault.StarredItem) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := keyStarred(item.UserID, item.Kind, item.ItemID)
		_, err := txn.Get(key)
		if err == nil {
			// Already starred; the original entry stands.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, item)
	})
}

func (s *BadgerStore) DeleteStarred(ctx context.Context, userID vault.UserID, kind vault.ItemKind, itemID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete(keyStarred(userID, kind, itemID))
	})
}

func (s *BadgerStore) ListStarred(ctx context.Context, userID vault.UserID) ([]vault.StarredItem, error) {
	var out []vault.StarredItem
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		return forEachValue(txn, prefixStarredUser(userID), func(val []byte) error {
			var item vault.StarredItem
			if err := json.Unmarshal(val, &item); err != nil {
				return fmt.Errorf("unmarshaling starred item: %w", err)
			}
			out = append(out, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StarredAt.Before(out[j].StarredAt) })
	return out, nil
}
