package badger

import (
	"github.com/marmos91/dittovault/pkg/vault"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize vault
// metadata into logical namespaces. This design:
//   - Prevents key collisions between different record types
//   - Enables efficient range scans (children of a folder, trash, grants)
//   - Makes the database structure self-documenting
//
// Key Namespace Prefixes:
//
// Record Type        Prefix  Key Format                         Value
// =========================================================================
// Content Record     "cr:"   cr:<digest>                        ContentRecord (JSON)
// Ownership Link     "ln:"   ln:<linkID>                        OwnershipLink (JSON)
// User+Digest Index  "lu:"   lu:<userID>:<digest>               linkID (bytes)
// Folder Listing     "lf:"   lf:<userID>:<folderKey>:<linkID>   (empty)
// Trash Index        "tr:"   tr:<userID>:<linkID>               (empty)
// Folder             "fo:"   fo:<folderID>                      Folder (JSON)
// Folder Children    "fc:"   fc:<ownerID>:<parentKey>\x00<name> folderID (bytes)
// Share Grant        "sg:"   sg:<kind>:<resID>\x00<target>      ShareGrant (JSON)
// Grant Target Index "sgt:"  sgt:<target>\x00<kind>:<resID>     (empty)
// Public Link        "pl:"   pl:<token>                         PublicLink (JSON)
// Activity           "ac:"   ac:<digest>:<seq>:<recID>          ActivityRecord (JSON)
// Starred Item       "st:"   st:<userID>:<kind>:<itemID>        StarredItem (JSON)
//
// Key Design Rationale:
//
//  1. Content records key on the digest directly: point lookup on the hot
//     ingest path, and the digest is already unique by construction.
//  2. The lu: index realizes the one-link-per-(user, digest) invariant: its
//     presence is checked inside the same transaction that creates a link,
//     so a duplicate can never be committed.
//  3. The lf: and tr: namespaces are pure indexes (empty values); the link
//     JSON lives only under ln:. A link appears in exactly one of the two
//     depending on its lifecycle state.
//  4. fc: embeds the folder name, so both the (owner, parent, name)
//     uniqueness check and child listing are a single point lookup/range
//     scan. Names are user-controlled, so a NUL byte separates the parent
//     key from the name (NUL cannot appear in a folder name).
//  5. Share grants key on (resource, target): the unique-pair invariant is
//     a point write, and grants-per-resource is a range scan. The sgt:
//     index serves "shared with me".
//  6. Activity keys embed an insertion sequence so range scans return
//     entries in append order, and share the digest prefix so the cascade
//     delete in PurgeLink is one range deletion.
//
// folderKey / parentKey are the folder id, or "root" for nil (folder ids
// are UUIDs, which can never equal the literal "root").

const (
	prefixContent     = "cr:"
	prefixLink        = "ln:"
	prefixUserDigest  = "lu:"
	prefixFolderLinks = "lf:"
	prefixTrash       = "tr:"
	prefixFolder      = "fo:"
	prefixFolderChild = "fc:"
	prefixGrant       = "sg:"
	prefixGrantTarget = "sgt:"
	prefixPublicLink  = "pl:"
	prefixActivity    = "ac:"
	prefixStarred     = "st:"
)

// rootKey stands in for a nil folder/parent id in composite keys.
const rootKey = "root"

// nameSep separates a user-controlled component (folder name, grant
// target) from the rest of a composite key.
const nameSep = "\x00"

func folderKeyPart(id *vault.FolderID) string {
	if id == nil {
		return rootKey
	}
	return string(*id)
}

func keyContent(digest vault.Digest) []byte {
	return []byte(prefixContent + string(digest))
}

func keyLink(id vault.LinkID) []byte {
	return []byte(prefixLink + string(id))
}

func keyUserDigest(userID vault.UserID, digest vault.Digest) []byte {
	return []byte(prefixUserDigest + string(userID) + ":" + string(digest))
}

func keyFolderLink(userID vault.UserID, folderID *vault.FolderID, linkID vault.LinkID) []byte {
	return []byte(prefixFolderLinks + string(userID) + ":" + folderKeyPart(folderID) + ":" + string(linkID))
}

func prefixFolderLink(userID vault.UserID, folderID *vault.FolderID) []byte {
	return []byte(prefixFolderLinks + string(userID) + ":" + folderKeyPart(folderID) + ":")
}

func keyTrash(userID vault.UserID, linkID vault.LinkID) []byte {
	return []byte(prefixTrash + string(userID) + ":" + string(linkID))
}

func prefixTrashUser(userID vault.UserID) []byte {
	return []byte(prefixTrash + string(userID) + ":")
}

func keyFolder(id vault.FolderID) []byte {
	return []byte(prefixFolder + string(id))
}

func keyFolderChild(ownerID vault.UserID, parentID *vault.FolderID, name string) []byte {
	return []byte(prefixFolderChild + string(ownerID) + ":" + folderKeyPart(parentID) + nameSep + name)
}

func prefixFolderChildren(ownerID vault.UserID, parentID *vault.FolderID) []byte {
	return []byte(prefixFolderChild + string(ownerID) + ":" + folderKeyPart(parentID) + nameSep)
}

func resourceKeyPart(res vault.Resource) string {
	return string(res.Kind) + ":" + res.ID
}

func keyGrant(res vault.Resource, target string) []byte {
	return []byte(prefixGrant + resourceKeyPart(res) + nameSep + target)
}

func prefixGrantsFor(res vault.Resource) []byte {
	return []byte(prefixGrant + resourceKeyPart(res) + nameSep)
}

func keyGrantTarget(target string, res vault.Resource) []byte {
	return []byte(prefixGrantTarget + target + nameSep + resourceKeyPart(res))
}

func prefixGrantTargets(target string) []byte {
	return []byte(prefixGrantTarget + target + nameSep)
}

func keyPublicLink(token vault.Token) []byte {
	return []byte(prefixPublicLink + string(token))
}

func keyActivity(digest vault.Digest, seq uint64, recID string) []byte {
	return []byte(prefixActivity + string(digest) + ":" + encodeSeq(seq) + ":" + recID)
}

func prefixActivityFor(digest vault.Digest) []byte {
	return []byte(prefixActivity + string(digest) + ":")
}

func keyStarred(userID vault.UserID, kind vault.ItemKind, itemID string) []byte {
	return []byte(prefixStarred + string(userID) + ":" + string(kind) + ":" + itemID)
}

func prefixStarredUser(userID vault.UserID) []byte {
	return []byte(prefixStarred + string(userID) + ":")
}
