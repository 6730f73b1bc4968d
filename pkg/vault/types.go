package vault

import (
	"time"
)

// ============================================================================
// Identifiers
// ============================================================================

// Digest is the identity of a physical content blob: the lowercase
// hex-encoded SHA-256 of the raw bytes. Two byte-identical uploads always
// produce the same Digest, which is what makes cross-tenant deduplication
// possible.
type Digest string

// UserID identifies a principal. The vault never looks inside it: identity
// issuance (local accounts, OAuth, anything else) is an external
// collaborator reached through the IdentityResolver port.
type UserID string

// LinkID identifies an OwnershipLink (a user's logical copy of content).
type LinkID string

// FolderID identifies a folder in a user's hierarchy.
type FolderID string

// GrantID identifies a share grant.
type GrantID string

// Token is an opaque public-link capability. It carries enough entropy that
// guessing one is infeasible; possession of a valid token is the entire
// access check for anonymous callers.
type Token string

// ============================================================================
// Enumerations
// ============================================================================

// Permission is the effective access level the sharing resolver computes for
// a (principal, resource) pair. Levels are strictly ordered: a higher level
// implies every lower one.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionViewer
	PermissionEditor
	PermissionOwner
)

// Allows reports whether p grants at least the requested level.
func (p Permission) Allows(required Permission) bool {
	return p >= required
}

func (p Permission) String() string {
	switch p {
	case PermissionNone:
		return "none"
	case PermissionViewer:
		return "viewer"
	case PermissionEditor:
		return "editor"
	case PermissionOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Role describes the uploader's relationship to their own link. It is
// informational and distinct from resolver grants: the resolver derives
// ownership from OwnershipLink.UserID, not from Role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Visibility is a display hint on a content record. Real enforcement always
// goes through the sharing resolver; this tag only drives UI badges.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// ActivityKind distinguishes ledger entries.
type ActivityKind string

const (
	ActivityPreview  ActivityKind = "preview"
	ActivityDownload ActivityKind = "download"
)

// ItemKind distinguishes starred items.
type ItemKind string

const (
	ItemFile   ItemKind = "file"
	ItemFolder ItemKind = "folder"
)

// ============================================================================
// Resources
// ============================================================================

// ResourceKind identifies what a grant or public link is bound to.
type ResourceKind string

const (
	ResourceFile   ResourceKind = "file"
	ResourceFolder ResourceKind = "folder"
)

// Resource is a shareable thing: either a file link or a folder. Grants and
// public links bind to exactly one Resource.
type Resource struct {
	Kind ResourceKind
	ID   string
}

// FileResource builds a Resource for an ownership link.
func FileResource(id LinkID) Resource {
	return Resource{Kind: ResourceFile, ID: string(id)}
}

// FolderResource builds a Resource for a folder.
func FolderResource(id FolderID) Resource {
	return Resource{Kind: ResourceFolder, ID: string(id)}
}

// ============================================================================
// Records
// ============================================================================

// ContentRecord is the physical side of deduplicated storage: one record per
// unique byte sequence, shared by every tenant that uploaded those bytes.
//
// RefCount equals the number of non-purged OwnershipLinks pointing at the
// record. It is created at 1 on first upload and only the content-store
// operations may mutate it. When RefCount reaches zero the record and its
// blob are removed.
type ContentRecord struct {
	// Digest is the record identity (hex SHA-256 of the raw bytes).
	Digest Digest

	// StoragePath is the opaque key handed to the blob port. It is derived
	// from the digest, so a racing double-Put of identical bytes lands on
	// the same object and is harmless.
	StoragePath string

	// Filename is the original name from the first uploader. Display hint
	// only; each link carries its own name.
	Filename string

	// MimeType as declared on first upload.
	MimeType string

	// Size in bytes.
	Size int64

	// RefCount is the number of live (non-purged) links referencing this
	// record. Trashed links still count; only purge decrements.
	RefCount uint32

	// Visibility is an informational tag (see Visibility).
	Visibility Visibility

	// CreatedAt is when the record was first created.
	CreatedAt time.Time
}

// OwnershipLink is a user's logical copy of a content record: the
// many-to-many association between users and deduplicated content.
//
// A user has at most one link per digest, no matter how many times they
// upload the same bytes. Soft delete (trash) sets TrashedAt; purge removes
// the link and decrements the content record's RefCount.
type OwnershipLink struct {
	ID     LinkID
	UserID UserID
	Digest Digest

	// Role is the uploader's relationship to their copy (informational).
	Role Role

	// FolderID places the link in the user's hierarchy; nil means root.
	// It is a weak reference: non-recursive folder deletion nulls it
	// rather than cascading.
	FolderID *FolderID

	// Filename is this user's name for the content. User A's "report.pdf"
	// and user B's "copy.pdf" can point at the same digest.
	Filename string

	UploadedAt time.Time

	// TrashedAt is set while the link sits in trash; nil when active.
	TrashedAt *time.Time
}

// Trashed reports whether the link is currently in trash.
func (l *OwnershipLink) Trashed() bool {
	return l.TrashedAt != nil
}

// Folder is a node in a user's folder tree. (OwnerID, ParentID, Name) is
// unique, the tree is cycle-free, and OwnerID never changes.
type Folder struct {
	ID      FolderID
	OwnerID UserID
	Name    string

	// ParentID is nil for top-level folders.
	ParentID *FolderID

	CreatedAt time.Time
}

// ShareGrant gives a target principal a permission level on a resource.
// Unique per (resource, target). Expired grants are inert but kept; the
// resolver treats now > ExpiresAt as "no grant".
type ShareGrant struct {
	ID       GrantID
	Resource Resource

	// OwnerID is the grantor (must own the resource).
	OwnerID UserID

	// Target is the resolved user id when the identity port knows the
	// principal, otherwise the invited email awaiting account creation.
	Target string

	// Permission is viewer or editor; ownership is never granted.
	Permission Permission

	GrantedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the grant is inert at the given instant.
func (g *ShareGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// PublicLink is an anonymous capability bound to exactly one resource.
// A resource can carry any number of tokens, each revocable on its own.
// Revoked and expired tokens resolve to "not found", never to a weaker
// permission.
type PublicLink struct {
	Token    Token
	Resource Resource
	OwnerID  UserID

	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time

	// AccessCount counts successful downloads served through this token.
	// Incremented atomically by the metadata store.
	AccessCount uint64
}

// Usable reports whether the token still resolves at the given instant.
func (p *PublicLink) Usable(now time.Time) bool {
	if p.RevokedAt != nil {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return true
}

// ActivityRecord is one append-only ledger entry. Records are never mutated
// and only disappear when their content record is purged.
type ActivityRecord struct {
	ID     string
	Digest Digest

	// UserID is empty for anonymous public-link access.
	UserID UserID

	Kind ActivityKind
	At   time.Time
}

// StarredItem marks a file link or folder as a user favorite.
// Unique per (user, kind, item).
type StarredItem struct {
	ID        string
	UserID    UserID
	Kind      ItemKind
	ItemID    string
	StarredAt time.Time
}
