package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittovault/pkg/vault"
)

// ============================================================================
// Share grants
// ============================================================================

func (s *BadgerStore) UpsertGrant(ctx context.Context, grant vault.ShareGrant) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, keyGrant(grant.Resource, grant.Target), grant); err != nil {
			return err
		}
		return txn.Set(keyGrantTarget(grant.Target, grant.Resource), nil)
	})
}

func (s *BadgerStore) GetGrant(ctx context.Context, res vault.Resource, target string) (*vault.ShareGrant, error) {
	var grant vault.ShareGrant
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyGrant(res, target), &grant)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("grant", res.ID)
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *BadgerStore) DeleteGrant(ctx context.Context, res vault.Resource, target string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Delete(keyGrant(res, target)); err != nil {
			return err
		}
		return txn.Delete(keyGrantTarget(target, res))
	})
}

func (s *BadgerStore) ListGrantsByResource(ctx context.Context, res vault.Resource) ([]vault.ShareGrant, error) {
	var out []vault.ShareGrant
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		return forEachValue(txn, prefixGrantsFor(res), func(val []byte) error {
			var grant vault.ShareGrant
			if err := json.Unmarshal(val, &grant); err != nil {
				return fmt.Errorf("unmarshaling grant: %w", err)
			}
			out = append(out, grant)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (s *BadgerStore) ListGrantsByTarget(ctx context.Context, target string) ([]vault.ShareGrant, error) {
	var out []vault.ShareGrant
	err := s.view(ctx, func(txn *badger.Txn) error {
		out = nil
		prefix := prefixGrantTargets(target)
		for _, key := range keysWithPrefix(txn, prefix) {
			res, err := parseResourceKey(string(key[len(prefix):]))
			if err != nil {
				return err
			}
			var grant vault.ShareGrant
			if err := getJSON(txn, keyGrant(res, target), &grant); err != nil {
				return fmt.Errorf("loading grant for %s %q: %w", res.Kind, res.ID, err)
			}
			out = append(out, grant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

// parseResourceKey inverts resourceKeyPart. Resource kinds never contain a
// colon, so the first one splits kind from id.
func parseResourceKey(part string) (vault.Resource, error) {
	for i := 0; i < len(part); i++ {
		if part[i] == ':' {
			return vault.Resource{Kind: vault.ResourceKind(part[:i]), ID: part[i+1:]}, nil
		}
	}
	return vault.Resource{}, fmt.Errorf("malformed resource key %q", part)
}

// ============================================================================
// Public links
// ============================================================================

func (s *BadgerStore) PutPublicLink(ctx context.Context, link vault.PublicLink) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, keyPublicLink(link.Token), link)
	})
}

func (s *BadgerStore) GetPublicLink(ctx context.Context, token vault.Token) (*vault.PublicLink, error) {
	var link vault.PublicLink
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, keyPublicLink(token), &link)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFoundErr("public link", "")
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *BadgerStore) RevokePublicLink(ctx context.Context, token vault.Token, at time.Time) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var link vault.PublicLink
		err := getJSON(txn, keyPublicLink(token), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("public link", "")
		}
		if err != nil {
			return err
		}
		if link.RevokedAt != nil {
			return nil
		}
		link.RevokedAt = &at
		return setJSON(txn, keyPublicLink(token), link)
	})
}

func (s *BadgerStore) IncrementLinkAccess(ctx context.Context, token vault.Token) (uint64, error) {
	var count uint64
	err := s.update(ctx, func(txn *badger.Txn) error {
		var link vault.PublicLink
		err := getJSON(txn, keyPublicLink(token), &link)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFoundErr("public link", "")
		}
		if err != nil {
			return err
		}
		link.AccessCount++
		count = link.AccessCount
		return setJSON(txn, keyPublicLink(token), link)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
