package vault

import (
	"context"
	"time"
)

// ============================================================================
// MetadataStore Interface
// ============================================================================

// MetadataStore is the persistence port for all vault metadata: content
// records, ownership links, folders, share grants, public links, the
// activity ledger and starred items.
//
// This interface abstracts the underlying storage mechanism (BadgerDB,
// memory, ...) and is the only place vault state is persisted. It manages
// metadata only; raw bytes live behind the blob port.
//
// Atomicity:
//
// A handful of operations are compound on purpose, because they must be
// single atomic units with respect to concurrent callers:
//
//   - IngestContent: digest lookup + create-or-increment + link creation.
//     Two simultaneous first-uploads of identical bytes must serialize into
//     one creator and one incrementer, final RefCount exactly 2.
//   - PurgeLink: link removal + RefCount decrement + zero-check + cascade
//     removal of the record and its activity entries.
//   - IncrementLinkAccess: the public-link usage counter. Concurrent
//     resolutions must not lose increments.
//   - SetFolderParent: the ancestor walk for cycle detection happens inside
//     the same transaction as the reparent.
//
// Implementations realize these either as one database transaction or an
// equivalent compare-and-swap loop. A naive read-then-write is incorrect.
//
// Field ownership:
//
// ContentRecord.RefCount is mutated exclusively by IngestContent and
// PurgeLink. PublicLink.AccessCount is mutated exclusively by
// IncrementLinkAccess. No other operation touches another component's
// invariant fields.
//
// Error conventions:
//
// Domain failures are returned as *StoreError with the appropriate code
// (CodeNotFound, CodeDuplicateName, CodeCyclicFolder, ...). Infrastructure
// failures are wrapped with fmt.Errorf. Read operations return copies;
// callers may mutate results freely.
//
// Thread safety: implementations must be safe for concurrent use by many
// goroutines.
type MetadataStore interface {
	// ========================================================================
	// Content records and ownership links
	// ========================================================================

	// IngestContent atomically links a user to content.
	//
	// If the user already has a link (active or trashed) for rec.Digest,
	// the existing link is returned untouched and nothing changes.
	// Otherwise, if a record for rec.Digest exists, its RefCount is
	// incremented and link is created; if not, rec is created as given
	// (callers set RefCount to 1) together with link.
	//
	// Returns the effective link and whether a new content record was
	// created (false on increment and on the already-linked path).
	IngestContent(ctx context.Context, rec ContentRecord, link OwnershipLink) (*OwnershipLink, bool, error)

	// GetContent returns the content record for a digest.
	GetContent(ctx context.Context, digest Digest) (*ContentRecord, error)

	// GetLink returns an ownership link by id, trashed or not.
	GetLink(ctx context.Context, id LinkID) (*OwnershipLink, error)

	// FindLink returns the user's link for a digest, trashed or not.
	FindLink(ctx context.Context, userID UserID, digest Digest) (*OwnershipLink, error)

	// ListLinks returns the user's active links directly under the given
	// folder (nil = root), sorted by filename.
	ListLinks(ctx context.Context, userID UserID, folderID *FolderID) ([]OwnershipLink, error)

	// SetLinkFolder moves an active link to another folder (nil = root).
	SetLinkFolder(ctx context.Context, id LinkID, folderID *FolderID) error

	// TrashLink soft-deletes an active link. CodeNotTrashed is never
	// returned here; trashing a trashed link fails with CodeNotFound
	// semantics left to the caller via GetLink.
	TrashLink(ctx context.Context, id LinkID, at time.Time) error

	// RestoreLink returns a trashed link to active. Fails with
	// CodeNotTrashed if the link is not in trash.
	RestoreLink(ctx context.Context, id LinkID) error

	// ListTrash returns the user's trashed links, most recent first.
	ListTrash(ctx context.Context, userID UserID) ([]OwnershipLink, error)

	// ListTrashedBefore returns every link (any user) trashed at or before
	// the cutoff. Used by the retention sweeper.
	ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]OwnershipLink, error)

	// PurgeLink removes a trashed link and decrements its content record's
	// RefCount; at zero the record and its activity entries are removed in
	// the same atomic unit. Returns the record as it stood before removal
	// and whether it was removed (so the caller can delete the blob).
	// Fails with CodeNotTrashed if the link is active.
	PurgeLink(ctx context.Context, id LinkID) (*ContentRecord, bool, error)

	// ========================================================================
	// Folders
	// ========================================================================

	// CreateFolder persists a folder. Fails with CodeDuplicateName when
	// (owner, parent, name) is taken.
	CreateFolder(ctx context.Context, folder Folder) error

	// GetFolder returns a folder by id.
	GetFolder(ctx context.Context, id FolderID) (*Folder, error)

	// RenameFolder changes a folder's name. Fails with CodeDuplicateName
	// when the new name collides in the same parent.
	RenameFolder(ctx context.Context, id FolderID, newName string) error

	// SetFolderParent reparents a folder (nil = top level). The cycle
	// check runs inside the same transaction; reparenting a folder under
	// itself or a descendant fails with CodeCyclicFolder, a name collision
	// in the new parent with CodeDuplicateName.
	SetFolderParent(ctx context.Context, id FolderID, parentID *FolderID) error

	// DeleteFolder removes a single folder node. Callers re-home or
	// remove children first.
	DeleteFolder(ctx context.Context, id FolderID) error

	// ListFolders returns the owner's folders directly under parent
	// (nil = top level), sorted by name.
	ListFolders(ctx context.Context, ownerID UserID, parentID *FolderID) ([]Folder, error)

	// FolderPath returns the ancestor chain root-first, ending with the
	// folder itself.
	FolderPath(ctx context.Context, id FolderID) ([]Folder, error)

	// ========================================================================
	// Share grants
	// ========================================================================

	// UpsertGrant creates or replaces the grant for (resource, target).
	UpsertGrant(ctx context.Context, grant ShareGrant) error

	// GetGrant returns the grant for (resource, target), expired or not.
	GetGrant(ctx context.Context, res Resource, target string) (*ShareGrant, error)

	// DeleteGrant removes the grant for (resource, target). Idempotent:
	// deleting an absent grant is not an error.
	DeleteGrant(ctx context.Context, res Resource, target string) error

	// ListGrantsByResource returns all grants on a resource.
	ListGrantsByResource(ctx context.Context, res Resource) ([]ShareGrant, error)

	// ListGrantsByTarget returns all grants where Target matches.
	ListGrantsByTarget(ctx context.Context, target string) ([]ShareGrant, error)

	// ========================================================================
	// Public links
	// ========================================================================

	// PutPublicLink persists a freshly issued link.
	PutPublicLink(ctx context.Context, link PublicLink) error

	// GetPublicLink returns the link for a token, revoked/expired or not.
	// Expiry interpretation is the caller's job (it owns the clock).
	GetPublicLink(ctx context.Context, token Token) (*PublicLink, error)

	// RevokePublicLink sets RevokedAt if not already set. Idempotent.
	RevokePublicLink(ctx context.Context, token Token, at time.Time) error

	// IncrementLinkAccess atomically bumps the access counter and returns
	// the new value.
	IncrementLinkAccess(ctx context.Context, token Token) (uint64, error)

	// ========================================================================
	// Activity ledger
	// ========================================================================

	// AppendActivity inserts one ledger entry. Append-only.
	AppendActivity(ctx context.Context, rec ActivityRecord) error

	// ListActivityByDigest returns the ledger entries for a digest in
	// insertion order.
	ListActivityByDigest(ctx context.Context, digest Digest) ([]ActivityRecord, error)

	// ========================================================================
	// Starred items
	// ========================================================================

	// PutStarred stars an item. Starring an already starred item keeps the
	// original entry (idempotent).
	PutStarred(ctx context.Context, item StarredItem) error

	// DeleteStarred unstars an item. Idempotent.
	DeleteStarred(ctx context.Context, userID UserID, kind ItemKind, itemID string) error

	// ListStarred returns the user's starred items.
	ListStarred(ctx context.Context, userID UserID) ([]StarredItem, error)

	// Close releases store resources. The store is unusable afterwards.
	Close() error
}
