// Package memory implements vault.MetadataStore with in-memory maps.
//
// This implementation is suitable for tests, development and ephemeral
// deployments where persistence is not required. It is the reference
// implementation for the store contract: the badger store must behave
// identically under pkg/vault/vaulttest.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittovault/pkg/vault"
)

type userDigestKey struct {
	user   vault.UserID
	digest vault.Digest
}

type grantKey struct {
	kind   vault.ResourceKind
	resID  string
	target string
}

type starKey struct {
	user vault.UserID
	kind vault.ItemKind
	item string
}

// MemoryStore implements vault.MetadataStore using in-memory storage.
//
// Thread safety: every operation takes a single read-write mutex. The
// coarse lock also provides the compound-operation atomicity the store
// contract demands; there is no window in which a racing ingest can
// observe a half-applied increment.
type MemoryStore struct {
	mu sync.RWMutex

	records      map[vault.Digest]vault.ContentRecord
	links        map[vault.LinkID]vault.OwnershipLink
	byUserDigest map[userDigestKey]vault.LinkID
	folders      map[vault.FolderID]vault.Folder
	grants       map[grantKey]vault.ShareGrant
	publicLinks  map[vault.Token]vault.PublicLink
	activity     map[vault.Digest][]vault.ActivityRecord
	starred      map[starKey]vault.StarredItem
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[vault.Digest]vault.ContentRecord),
		links:        make(map[vault.LinkID]vault.OwnershipLink),
		byUserDigest: make(map[userDigestKey]vault.LinkID),
		folders:      make(map[vault.FolderID]vault.Folder),
		grants:       make(map[grantKey]vault.ShareGrant),
		publicLinks:  make(map[vault.Token]vault.PublicLink),
		activity:     make(map[vault.Digest][]vault.ActivityRecord),
		starred:      make(map[starKey]vault.StarredItem),
	}
}

func notFound(what, path string) *vault.StoreError {
	return &vault.StoreError{Code: vault.CodeNotFound, Message: what + " not found", Path: path}
}

// ============================================================================
// Content records and ownership links
// ============================================================================

func (s *MemoryStore) IngestContent(ctx context.Context, rec vault.ContentRecord, link vault.OwnershipLink) (*vault.OwnershipLink, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One link per (user, digest), trashed or not.
	if existingID, ok := s.byUserDigest[userDigestKey{link.UserID, rec.Digest}]; ok {
		existing := s.links[existingID]
		return &existing, false, nil
	}

	created := false
	if stored, ok := s.records[rec.Digest]; ok {
		stored.RefCount++
		s.records[rec.Digest] = stored
	} else {
		s.records[rec.Digest] = rec
		created = true
	}

	s.links[link.ID] = link
	s.byUserDigest[userDigestKey{link.UserID, rec.Digest}] = link.ID

	out := link
	return &out, created, nil
}

func (s *MemoryStore) GetContent(ctx context.Context, digest vault.Digest) (*vault.ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[digest]
	if !ok {
		return nil, notFound("content", string(digest))
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) GetLink(ctx context.Context, id vault.LinkID) (*vault.OwnershipLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[id]
	if !ok {
		return nil, notFound("link", string(id))
	}
	out := link
	return &out, nil
}

func (s *MemoryStore) FindLink(ctx context.Context, userID vault.UserID, digest vault.Digest) (*vault.OwnershipLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUserDigest[userDigestKey{userID, digest}]
	if !ok {
		return nil, notFound("link", string(digest))
	}
	link := s.links[id]
	return &link, nil
}

func sameFolder(a, b *vault.FolderID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *MemoryStore) ListLinks(ctx context.Context, userID vault.UserID, folderID *vault.FolderID) ([]vault.OwnershipLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.OwnershipLink
	for _, link := range s.links {
		if link.UserID == userID && !link.Trashed() && sameFolder(link.FolderID, folderID) {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (s *MemoryStore) SetLinkFolder(ctx context.Context, id vault.LinkID, folderID *vault.FolderID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok || link.Trashed() {
		return notFound("link", string(id))
	}
	link.FolderID = folderID
	s.links[id] = link
	return nil
}

func (s *MemoryStore) TrashLink(ctx context.Context, id vault.LinkID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok || link.Trashed() {
		return notFound("link", string(id))
	}
	link.TrashedAt = &at
	s.links[id] = link
	return nil
}

func (s *MemoryStore) RestoreLink(ctx context.Context, id vault.LinkID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return notFound("link", string(id))
	}
	if !link.Trashed() {
		return &vault.StoreError{Code: vault.CodeNotTrashed, Message: "link is not in trash", Path: string(id)}
	}
	link.TrashedAt = nil

	// The folder may have been removed while the link sat in trash;
	// restore to root in that case rather than to a dangling id.
	if link.FolderID != nil {
		if _, ok := s.folders[*link.FolderID]; !ok {
			link.FolderID = nil
		}
	}
	s.links[id] = link
	return nil
}

func (s *MemoryStore) ListTrash(ctx context.Context, userID vault.UserID) ([]vault.OwnershipLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.OwnershipLink
	for _, link := range s.links {
		if link.UserID == userID && link.Trashed() {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrashedAt.After(*out[j].TrashedAt) })
	return out, nil
}

func (s *MemoryStore) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]vault.OwnershipLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.OwnershipLink
	for _, link := range s.links {
		if link.Trashed() && !link.TrashedAt.After(cutoff) {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrashedAt.Before(*out[j].TrashedAt) })
	return out, nil
}

func (s *MemoryStore) PurgeLink(ctx context.Context, id vault.LinkID) (*vault.ContentRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return nil, false, notFound("link", string(id))
	}
	if !link.Trashed() {
		return nil, false, &vault.StoreError{Code: vault.CodeNotTrashed, Message: "link is not in trash", Path: string(id)}
	}

	rec, ok := s.records[link.Digest]
	if !ok {
		return nil, false, notFound("content", string(link.Digest))
	}

	delete(s.links, id)
	delete(s.byUserDigest, userDigestKey{link.UserID, link.Digest})

	rec.RefCount--
	removed := rec.RefCount == 0
	if removed {
		delete(s.records, link.Digest)
		delete(s.activity, link.Digest)
	} else {
		s.records[link.Digest] = rec
	}

	out := rec
	return &out, removed, nil
}

// ============================================================================
// Folders
// ============================================================================

// nameTakenLocked reports a (owner, parent, name) collision. Caller holds
// the lock.
func (s *MemoryStore) nameTakenLocked(owner vault.UserID, parent *vault.FolderID, name string, exclude vault.FolderID) bool {
	for _, f := range s.folders {
		if f.ID != exclude && f.OwnerID == owner && f.Name == name && sameFolder(f.ParentID, parent) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateFolder(ctx context.Context, folder vault.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTakenLocked(folder.OwnerID, folder.ParentID, folder.Name, folder.ID) {
		return &vault.StoreError{Code: vault.CodeDuplicateName, Message: "folder name already in use", Path: folder.Name}
	}

	s.folders[folder.ID] = folder
	return nil
}

func (s *MemoryStore) GetFolder(ctx context.Context, id vault.FolderID) (*vault.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	folder, ok := s.folders[id]
	if !ok {
		return nil, notFound("folder", string(id))
	}
	out := folder
	return &out, nil
}

func (s *MemoryStore) RenameFolder(ctx context.Context, id vault.FolderID, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return notFound("folder", string(id))
	}
	if s.nameTakenLocked(folder.OwnerID, folder.ParentID, newName, id) {
		return &vault.StoreError{Code: vault.CodeDuplicateName, Message: "folder name already in use", Path: newName}
	}

	folder.Name = newName
	s.folders[id] = folder
	return nil
}

func (s *MemoryStore) SetFolderParent(ctx context.Context, id vault.FolderID, parentID *vault.FolderID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, ok := s.folders[id]
	if !ok {
		return notFound("folder", string(id))
	}

	// Cycle check: the new parent must not be the folder or below it.
	if parentID != nil {
		if _, ok := s.folders[*parentID]; !ok {
			return notFound("folder", string(*parentID))
		}
		for cur := parentID; cur != nil; {
			if *cur == id {
				return &vault.StoreError{
					Code:    vault.CodeCyclicFolder,
					Message: "move would make folder its own descendant",
					Path:    string(id),
				}
			}
			next := s.folders[*cur].ParentID
			cur = next
		}
	}

	if s.nameTakenLocked(folder.OwnerID, parentID, folder.Name, id) {
		return &vault.StoreError{Code: vault.CodeDuplicateName, Message: "folder name already in use", Path: folder.Name}
	}

	folder.ParentID = parentID
	s.folders[id] = folder
	return nil
}

func (s *MemoryStore) DeleteFolder(ctx context.Context, id vault.FolderID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.folders[id]; !ok {
		return notFound("folder", string(id))
	}
	delete(s.folders, id)
	return nil
}

func (s *MemoryStore) ListFolders(ctx context.Context, ownerID vault.UserID, parentID *vault.FolderID) ([]vault.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID && sameFolder(f.ParentID, parentID) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) FolderPath(ctx context.Context, id vault.FolderID) ([]vault.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain []vault.Folder
	cur, ok := s.folders[id]
	if !ok {
		return nil, notFound("folder", string(id))
	}
	for {
		chain = append(chain, cur)
		if cur.ParentID == nil {
			break
		}
		parent, ok := s.folders[*cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}

	// chain is leaf-first; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ============================================================================
// Share grants
// ============================================================================

func keyForGrant(res vault.Resource, target string) grantKey {
	return grantKey{kind: res.Kind, resID: res.ID, target: target}
}

func (s *MemoryStore) UpsertGrant(ctx context.Context, grant vault.ShareGrant) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants[keyForGrant(grant.Resource, grant.Target)] = grant
	return nil
}

func (s *MemoryStore) GetGrant(ctx context.Context, res vault.Resource, target string) (*vault.ShareGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.grants[keyForGrant(res, target)]
	if !ok {
		return nil, notFound("grant", res.ID)
	}
	out := grant
	return &out, nil
}

func (s *MemoryStore) DeleteGrant(ctx context.Context, res vault.Resource, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, keyForGrant(res, target))
	return nil
}

func (s *MemoryStore) ListGrantsByResource(ctx context.Context, res vault.Resource) ([]vault.ShareGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.ShareGrant
	for _, g := range s.grants {
		if g.Resource == res {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (s *MemoryStore) ListGrantsByTarget(ctx context.Context, target string) ([]vault.ShareGrant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.ShareGrant
	for _, g := range s.grants {
		if g.Target == target {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

// ============================================================================
// Public links
// ============================================================================

func (s *MemoryStore) PutPublicLink(ctx context.Context, link vault.PublicLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.publicLinks[link.Token] = link
	return nil
}

func (s *MemoryStore) GetPublicLink(ctx context.Context, token vault.Token) (*vault.PublicLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.publicLinks[token]
	if !ok {
		return nil, notFound("public link", "")
	}
	out := link
	return &out, nil
}

func (s *MemoryStore) RevokePublicLink(ctx context.Context, token vault.Token, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.publicLinks[token]
	if !ok {
		return notFound("public link", "")
	}
	if link.RevokedAt == nil {
		link.RevokedAt = &at
		s.publicLinks[token] = link
	}
	return nil
}

func (s *MemoryStore) IncrementLinkAccess(ctx context.Context, token vault.Token) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.publicLinks[token]
	if !ok {
		return 0, notFound("public link", "")
	}
	link.AccessCount++
	s.publicLinks[token] = link
	return link.AccessCount, nil
}

// ============================================================================
// Activity ledger
// ============================================================================

func (s *MemoryStore) AppendActivity(ctx context.Context, rec vault.ActivityRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.activity[rec.Digest] = append(s.activity[rec.Digest], rec)
	return nil
}

func (s *MemoryStore) ListActivityByDigest(ctx context.Context, digest vault.Digest) ([]vault.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.activity[digest]
	out := make([]vault.ActivityRecord, len(entries))
	copy(out, entries)
	return out, nil
}

// ============================================================================
// Starred items
// ============================================================================

func (s *MemoryStore) PutStarred(ctx context.Context, item vault.StarredItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := starKey{item.UserID, item.Kind, item.ItemID}
	if _, ok := s.starred[key]; ok {
		return nil
	}
	s.starred[key] = item
	return nil
}

func (s *MemoryStore) DeleteStarred(ctx context.Context, userID vault.UserID, kind vault.ItemKind, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.starred, starKey{userID, kind, itemID})
	return nil
}

func (s *MemoryStore) ListStarred(ctx context.Context, userID vault.UserID) ([]vault.StarredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []vault.StarredItem
	for _, item := range s.starred {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StarredAt.Before(out[j].StarredAt) })
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
