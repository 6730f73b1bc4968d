package vault

import "errors"

// StoreError represents a domain error from vault operations.
//
// These are business rule failures (link not found, duplicate folder name,
// caller is not the owner, ...) as opposed to infrastructure errors (blob
// store down, badger I/O failure). Infrastructure errors are wrapped with
// fmt.Errorf and propagate as-is.
//
// Transport layers translate ErrorCode to their own status codes; the core
// never shapes errors for a particular wire format.
type StoreError struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path names the resource involved (an id, token, folder name, ...)
	// when that helps debugging. May be empty.
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a vault error.
type ErrorCode int

const (
	// CodeNotFound covers every "no such thing" outcome: absent records,
	// links, folders and grants, but also revoked or expired public-link
	// tokens and resources the caller has no right to see. Collapsing
	// unauthorized and absent into one code is deliberate: an error type
	// must not leak whether a resource exists.
	CodeNotFound ErrorCode = iota

	// CodeNotOwner indicates a mutating share/link operation was attempted
	// by someone other than the resource owner.
	CodeNotOwner

	// CodeForbidden indicates the resolver denied an access that the
	// caller was allowed to know exists (admin-only surfaces).
	CodeForbidden

	// CodeAlreadyLinked indicates the user already has a link for this
	// content. Ingest treats it as an idempotent success and returns the
	// existing link; the code exists for callers that need to distinguish.
	CodeAlreadyLinked

	// CodeDuplicateName indicates a folder name collision within the same
	// (owner, parent).
	CodeDuplicateName

	// CodeCyclicFolder indicates a move/reparent that would make a folder
	// its own descendant. Always rejected, never partially applied.
	CodeCyclicFolder

	// CodeInvalidPermission indicates a share level outside the viewer/
	// editor enumeration.
	CodeInvalidPermission

	// CodeNotTrashed indicates restore/purge on a link that is not in
	// trash.
	CodeNotTrashed

	// CodeInvalidArgument indicates malformed input: empty names, unknown
	// kinds, nil payloads.
	CodeInvalidArgument

	// CodeLedgerUnavailable indicates the activity ledger could not accept
	// an append. Access paths log this and carry on; the ledger never
	// fails the download it is recording.
	CodeLedgerUnavailable

	// CodeConflict indicates a transactional conflict that persisted past
	// the store's internal retries. Callers may retry the operation.
	CodeConflict
)

// CodeOf extracts the ErrorCode from an error, unwrapping as needed.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is a StoreError with CodeNotFound.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNotFound
}

// IsNotOwner reports whether err is a StoreError with CodeNotOwner.
func IsNotOwner(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNotOwner
}

// IsDuplicateName reports whether err is a StoreError with CodeDuplicateName.
func IsDuplicateName(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeDuplicateName
}

// IsCyclicFolder reports whether err is a StoreError with CodeCyclicFolder.
func IsCyclicFolder(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeCyclicFolder
}

// IsNotTrashed reports whether err is a StoreError with CodeNotTrashed.
func IsNotTrashed(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeNotTrashed
}
