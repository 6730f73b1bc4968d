package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EffectivePermission computes what principal may do with a resource. It is
// a pure function over current grant state; nothing is cached, so a grant
// that expires between two calls yields the weaker answer on the second.
//
// Resolution order:
//
//  1. Ownership. The resource owner is always PermissionOwner, regardless
//     of any grant.
//  2. A direct, unexpired grant on the resource itself. A direct grant
//     always wins over inherited folder grants, even when its level is
//     lower: a viewer grant on a file overrides an editor grant on the
//     parent folder.
//  3. For files placed in a folder: the nearest ancestor folder carrying an
//     unexpired grant for the principal, walking upward from the containing
//     folder. Folder shares flow downward only; a grant on a subfolder
//     says nothing about its parent.
//  4. PermissionNone.
func (s *Service) EffectivePermission(ctx context.Context, principal UserID, res Resource) (Permission, error) {
	now := s.clock.Now()

	switch res.Kind {
	case ResourceFile:
		link, err := s.store.GetLink(ctx, LinkID(res.ID))
		if err != nil {
			if IsNotFound(err) {
				return PermissionNone, nil
			}
			return PermissionNone, err
		}

		if link.UserID == principal {
			return PermissionOwner, nil
		}

		if perm, ok, err := s.directGrant(ctx, res, principal, now); err != nil {
			return PermissionNone, err
		} else if ok {
			return perm, nil
		}

		if link.FolderID == nil {
			return PermissionNone, nil
		}
		return s.inheritedPermission(ctx, principal, *link.FolderID, now)

	case ResourceFolder:
		folder, err := s.store.GetFolder(ctx, FolderID(res.ID))
		if err != nil {
			if IsNotFound(err) {
				return PermissionNone, nil
			}
			return PermissionNone, err
		}

		if folder.OwnerID == principal {
			return PermissionOwner, nil
		}

		if perm, ok, err := s.directGrant(ctx, res, principal, now); err != nil {
			return PermissionNone, err
		} else if ok {
			return perm, nil
		}

		// Folder shares inherit downward through subfolders too: access
		// to a folder implies access to everything below it.
		if folder.ParentID == nil {
			return PermissionNone, nil
		}
		return s.inheritedPermission(ctx, principal, *folder.ParentID, now)

	default:
		return PermissionNone, &StoreError{
			Code:    CodeInvalidArgument,
			Message: "unknown resource kind",
			Path:    string(res.Kind),
		}
	}
}

// directGrant looks up an unexpired grant on res for the principal.
func (s *Service) directGrant(ctx context.Context, res Resource, principal UserID, now time.Time) (Permission, bool, error) {
	grant, err := s.store.GetGrant(ctx, res, string(principal))
	if err != nil {
		if IsNotFound(err) {
			return PermissionNone, false, nil
		}
		return PermissionNone, false, err
	}
	if grant.Expired(now) {
		return PermissionNone, false, nil
	}
	return grant.Permission, true, nil
}

// inheritedPermission walks the ancestor chain from the given folder upward
// and returns the nearest unexpired grant's level.
func (s *Service) inheritedPermission(ctx context.Context, principal UserID, folderID FolderID, now time.Time) (Permission, error) {
	path, err := s.store.FolderPath(ctx, folderID)
	if err != nil {
		if IsNotFound(err) {
			return PermissionNone, nil
		}
		return PermissionNone, err
	}

	// path is root-first; the nearest ancestor is the last element.
	for i := len(path) - 1; i >= 0; i-- {
		perm, ok, err := s.directGrant(ctx, FolderResource(path[i].ID), principal, now)
		if err != nil {
			return PermissionNone, err
		}
		if ok {
			return perm, nil
		}
	}
	return PermissionNone, nil
}

// Share grants target a permission level on a resource the caller owns.
//
// target is an email address or a principal id. Emails are resolved through
// the identity port when an account exists; unknown addresses are stored as
// pending targets that start matching once the account is created and the
// grant target is rewritten by the surrounding application.
//
// Re-sharing the same (resource, target) updates the level and expiry in
// place, preserving the unique-pair invariant.
func (s *Service) Share(ctx context.Context, res Resource, ownerID UserID, target string, level Permission, expiresAt *time.Time) (*ShareGrant, error) {
	if level != PermissionViewer && level != PermissionEditor {
		return nil, &StoreError{
			Code:    CodeInvalidPermission,
			Message: "share level must be viewer or editor",
			Path:    level.String(),
		}
	}
	if target == "" {
		return nil, &StoreError{Code: CodeInvalidArgument, Message: "share target is required"}
	}

	if err := s.requireOwner(ctx, ownerID, res); err != nil {
		return nil, err
	}

	resolved, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if resolved == string(ownerID) {
		return nil, &StoreError{Code: CodeInvalidArgument, Message: "cannot share a resource with its owner"}
	}

	grant := ShareGrant{
		ID:         GrantID(uuid.NewString()),
		Resource:   res,
		OwnerID:    ownerID,
		Target:     resolved,
		Permission: level,
		GrantedAt:  s.clock.Now(),
		ExpiresAt:  expiresAt,
	}

	// Keep the original grant id and timestamp when updating in place.
	if existing, err := s.store.GetGrant(ctx, res, resolved); err == nil {
		grant.ID = existing.ID
		grant.GrantedAt = existing.GrantedAt
	} else if !IsNotFound(err) {
		return nil, err
	}

	if err := s.store.UpsertGrant(ctx, grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// resolveTarget maps an email to a principal id when one exists; principal
// ids and unknown emails pass through unchanged.
func (s *Service) resolveTarget(ctx context.Context, target string) (string, error) {
	if !strings.Contains(target, "@") {
		return target, nil
	}
	id, found, err := s.identity.LookupEmail(ctx, target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve share target: %w", err)
	}
	if !found {
		return target, nil
	}
	return string(id), nil
}

// Revoke removes the grant for (resource, target). Idempotent: revoking an
// absent grant succeeds.
func (s *Service) Revoke(ctx context.Context, res Resource, ownerID UserID, target string) error {
	if err := s.requireOwner(ctx, ownerID, res); err != nil {
		return err
	}

	resolved, err := s.resolveTarget(ctx, target)
	if err != nil {
		return err
	}
	return s.store.DeleteGrant(ctx, res, resolved)
}

// ListGrants returns all grants on a resource the caller owns, expired ones
// included (they are inert but visible to the owner).
func (s *Service) ListGrants(ctx context.Context, res Resource, ownerID UserID) ([]ShareGrant, error) {
	if err := s.requireOwner(ctx, ownerID, res); err != nil {
		return nil, err
	}
	return s.store.ListGrantsByResource(ctx, res)
}

// SharedWithMe returns the unexpired grants naming the principal.
func (s *Service) SharedWithMe(ctx context.Context, principal UserID) ([]ShareGrant, error) {
	grants, err := s.store.ListGrantsByTarget(ctx, string(principal))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	live := grants[:0]
	for _, g := range grants {
		if !g.Expired(now) {
			live = append(live, g)
		}
	}
	return live, nil
}
