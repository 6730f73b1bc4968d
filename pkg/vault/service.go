package vault

import (
	"context"
	"fmt"

	"github.com/marmos91/dittovault/pkg/blob"
)

// Service implements the vault core: the content-addressed store, the folder
// hierarchy, the sharing resolver, the public link issuer, the trash
// lifecycle and the activity ledger. It coordinates the metadata store and
// the blob port; it holds no state of its own, so one Service serves every
// concurrent request handler of the surrounding application.
type Service struct {
	store    MetadataStore
	blobs    blob.Store
	identity IdentityResolver
	clock    Clock
	tokens   TokenSource
}

// ServiceConfig contains the collaborators a Service is built from.
type ServiceConfig struct {
	// Store is the metadata persistence port. Required.
	Store MetadataStore

	// Blobs is the blob port. Required.
	Blobs blob.Store

	// Identity resolves principals and emails. Defaults to OpenIdentity.
	Identity IdentityResolver

	// Clock drives expiry and retention decisions. Defaults to RealClock.
	Clock Clock

	// Tokens mints public-link tokens. Defaults to RandomTokenSource.
	Tokens TokenSource
}

// NewService creates a vault service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("vault service: metadata store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("vault service: blob store is required")
	}

	svc := &Service{
		store:    cfg.Store,
		blobs:    cfg.Blobs,
		identity: cfg.Identity,
		clock:    cfg.Clock,
		tokens:   cfg.Tokens,
	}
	if svc.identity == nil {
		svc.identity = OpenIdentity{}
	}
	if svc.clock == nil {
		svc.clock = RealClock{}
	}
	if svc.tokens == nil {
		svc.tokens = RandomTokenSource{}
	}

	return svc, nil
}

// notFound is the uniform "absent or not yours" failure. Unauthorized
// callers receive the same error as callers of nonexistent resources, so
// error types leak nothing about what exists.
func notFound(what, path string) *StoreError {
	return &StoreError{Code: CodeNotFound, Message: what + " not found", Path: path}
}

// ownedFolder loads a folder and checks it belongs to userID, collapsing
// "absent" and "not yours" into the same error.
func (s *Service) ownedFolder(ctx context.Context, userID UserID, id FolderID) (*Folder, error) {
	folder, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != userID {
		return nil, notFound("folder", string(id))
	}
	return folder, nil
}

// ownedLink loads a link and checks it belongs to userID, collapsing
// "absent" and "not yours" into the same error.
func (s *Service) ownedLink(ctx context.Context, userID UserID, id LinkID) (*OwnershipLink, error) {
	link, err := s.store.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.UserID != userID {
		return nil, notFound("file", string(id))
	}
	return link, nil
}

// resourceOwner returns the owner of a share target without any caller
// check. Used by Share/Revoke/Issue to verify grantors.
func (s *Service) resourceOwner(ctx context.Context, res Resource) (UserID, error) {
	switch res.Kind {
	case ResourceFile:
		link, err := s.store.GetLink(ctx, LinkID(res.ID))
		if err != nil {
			return "", err
		}
		return link.UserID, nil
	case ResourceFolder:
		folder, err := s.store.GetFolder(ctx, FolderID(res.ID))
		if err != nil {
			return "", err
		}
		return folder.OwnerID, nil
	default:
		return "", &StoreError{
			Code:    CodeInvalidArgument,
			Message: "unknown resource kind",
			Path:    string(res.Kind),
		}
	}
}

// requireOwner verifies that caller owns res, returning CodeNotOwner
// otherwise. Absent resources surface as CodeNotFound from the store.
func (s *Service) requireOwner(ctx context.Context, caller UserID, res Resource) error {
	owner, err := s.resourceOwner(ctx, res)
	if err != nil {
		return err
	}
	if owner != caller {
		return &StoreError{
			Code:    CodeNotOwner,
			Message: "caller does not own resource",
			Path:    res.ID,
		}
	}
	return nil
}
