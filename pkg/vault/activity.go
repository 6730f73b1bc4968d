package vault

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/marmos91/dittovault/internal/logger"
)

// DownloadResult is the outcome of an authorized content access: the bytes
// plus the metadata a transport needs to serve them.
type DownloadResult struct {
	// Content streams the blob. The caller closes it.
	Content io.ReadCloser

	// Filename is the accessing user's name for the file (the link's
	// name, not the first uploader's).
	Filename string

	MimeType string
	Size     int64
}

// RecordActivity appends one ledger entry. Unlike the access paths, a store
// failure here is returned to the caller (as CodeLedgerUnavailable) because
// the caller explicitly asked for the append.
func (s *Service) RecordActivity(ctx context.Context, digest Digest, userID UserID, kind ActivityKind) error {
	if kind != ActivityPreview && kind != ActivityDownload {
		return &StoreError{Code: CodeInvalidArgument, Message: "unknown activity kind", Path: string(kind)}
	}

	rec := ActivityRecord{
		ID:     uuid.NewString(),
		Digest: digest,
		UserID: userID,
		Kind:   kind,
		At:     s.clock.Now(),
	}

	if err := s.store.AppendActivity(ctx, rec); err != nil {
		return &StoreError{
			Code:    CodeLedgerUnavailable,
			Message: fmt.Sprintf("activity ledger unavailable: %v", err),
		}
	}
	return nil
}

// recordAccess is the fire-and-forget ledger append used by the access
// paths. Logging the access must never fail the access itself, so failures
// are logged and swallowed here.
func (s *Service) recordAccess(ctx context.Context, digest Digest, userID UserID, kind ActivityKind) {
	if err := s.RecordActivity(ctx, digest, userID, kind); err != nil {
		logger.Warn("activity ledger append (%s of %s) failed: %v", kind, digest, err)
	}
}

// fetchContent reads a link's bytes from the blob port and packages them.
func (s *Service) fetchContent(ctx context.Context, link *OwnershipLink) (*DownloadResult, error) {
	rec, err := s.store.GetContent(ctx, link.Digest)
	if err != nil {
		return nil, err
	}

	reader, err := s.blobs.Get(ctx, rec.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("blob read for %s: %w", link.Digest, err)
	}

	return &DownloadResult{
		Content:  reader,
		Filename: link.Filename,
		MimeType: rec.MimeType,
		Size:     rec.Size,
	}, nil
}

// access authorizes principal against a link at the required level and
// serves the bytes, appending a ledger entry on success. Permission
// failures are indistinguishable from absent files.
func (s *Service) access(ctx context.Context, principal UserID, linkID LinkID, kind ActivityKind) (*DownloadResult, error) {
	link, err := s.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.Trashed() && link.UserID != principal {
		// Trashed files stay visible to their owner (in trash) but to
		// nobody else, shares included.
		return nil, notFound("file", string(linkID))
	}

	perm, err := s.EffectivePermission(ctx, principal, FileResource(linkID))
	if err != nil {
		return nil, err
	}
	if !perm.Allows(PermissionViewer) {
		return nil, notFound("file", string(linkID))
	}

	result, err := s.fetchContent(ctx, link)
	if err != nil {
		return nil, err
	}

	s.recordAccess(ctx, link.Digest, principal, kind)
	return result, nil
}

// Download serves a file's bytes to an authorized principal and records a
// download ledger entry.
func (s *Service) Download(ctx context.Context, principal UserID, linkID LinkID) (*DownloadResult, error) {
	return s.access(ctx, principal, linkID, ActivityDownload)
}

// Preview serves a file's bytes for inline preview and records a preview
// ledger entry.
func (s *Service) Preview(ctx context.Context, principal UserID, linkID LinkID) (*DownloadResult, error) {
	return s.access(ctx, principal, linkID, ActivityPreview)
}

// ActivityFor returns the ledger entries for one of the caller's files, in
// insertion order. This is the read surface the analytics collaborator
// consumes.
func (s *Service) ActivityFor(ctx context.Context, userID UserID, linkID LinkID) ([]ActivityRecord, error) {
	link, err := s.ownedLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	return s.store.ListActivityByDigest(ctx, link.Digest)
}
