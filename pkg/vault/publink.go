package vault

import (
	"context"
	"time"

	"github.com/marmos91/dittovault/internal/logger"
)

// IssuePublicLink mints an anonymous capability token for a resource the
// caller owns. A resource can carry any number of tokens; each is revoked
// independently.
func (s *Service) IssuePublicLink(ctx context.Context, res Resource, ownerID UserID, expiresAt *time.Time) (*PublicLink, error) {
	if err := s.requireOwner(ctx, ownerID, res); err != nil {
		return nil, err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return nil, err
	}

	link := PublicLink{
		Token:     token,
		Resource:  res,
		OwnerID:   ownerID,
		CreatedAt: s.clock.Now(),
		ExpiresAt: expiresAt,
	}

	if err := s.store.PutPublicLink(ctx, link); err != nil {
		return nil, err
	}
	return &link, nil
}

// ResolvePublicLink validates a token and returns its link. Unknown,
// revoked and expired tokens all fail with the same CodeNotFound error;
// distinguishing them would tell an anonymous caller which tokens once
// existed.
func (s *Service) ResolvePublicLink(ctx context.Context, token Token) (*PublicLink, error) {
	link, err := s.store.GetPublicLink(ctx, token)
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound("public link", "")
		}
		return nil, err
	}
	if !link.Usable(s.clock.Now()) {
		return nil, notFound("public link", "")
	}
	return link, nil
}

// RevokePublicLink permanently disables a token. Only the issuing owner may
// revoke; revoking an already-revoked token is a no-op.
func (s *Service) RevokePublicLink(ctx context.Context, token Token, ownerID UserID) error {
	link, err := s.store.GetPublicLink(ctx, token)
	if err != nil {
		return err
	}
	if link.OwnerID != ownerID {
		return &StoreError{
			Code:    CodeNotOwner,
			Message: "caller does not own public link",
		}
	}
	return s.store.RevokePublicLink(ctx, token, s.clock.Now())
}

// DownloadViaPublicLink serves bytes to an anonymous caller holding a valid
// file token. Every successful download atomically bumps the token's usage
// counter. For folder tokens this fails with the uniform not-found error;
// a folder has no bytes to serve (see ListPublicFolder).
func (s *Service) DownloadViaPublicLink(ctx context.Context, token Token) (*DownloadResult, error) {
	link, err := s.ResolvePublicLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Resource.Kind != ResourceFile {
		return nil, notFound("public link", "")
	}

	ownLink, err := s.store.GetLink(ctx, LinkID(link.Resource.ID))
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound("public link", "")
		}
		return nil, err
	}
	if ownLink.Trashed() {
		// Trashed files are invisible through public links until restored.
		return nil, notFound("public link", "")
	}

	result, err := s.fetchContent(ctx, ownLink)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.IncrementLinkAccess(ctx, token); err != nil {
		// Counter loss is a statistics bug, not a reason to fail the
		// download the caller was already authorized for.
		logger.Warn("public link %s: access counter increment failed: %v", token, err)
	}

	s.recordAccess(ctx, ownLink.Digest, "", ActivityDownload)
	return result, nil
}

// ListPublicFolder lists the immediate children of a folder token: the
// subfolders and active file links inside the shared folder.
func (s *Service) ListPublicFolder(ctx context.Context, token Token) ([]Folder, []OwnershipLink, error) {
	link, err := s.ResolvePublicLink(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if link.Resource.Kind != ResourceFolder {
		return nil, nil, notFound("public link", "")
	}

	folder, err := s.store.GetFolder(ctx, FolderID(link.Resource.ID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil, notFound("public link", "")
		}
		return nil, nil, err
	}

	folders, err := s.store.ListFolders(ctx, folder.OwnerID, &folder.ID)
	if err != nil {
		return nil, nil, err
	}
	links, err := s.store.ListLinks(ctx, folder.OwnerID, &folder.ID)
	if err != nil {
		return nil, nil, err
	}
	return folders, links, nil
}
