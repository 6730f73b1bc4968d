package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// ============================================================================
// Clock
// ============================================================================

// Clock abstracts time retrieval so expiry and retention logic is
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ============================================================================
// Identity
// ============================================================================

// IdentityResolver is the single identity-resolution port. The vault never
// knows how many identity backends exist behind it (local accounts, OAuth
// users, service principals): it only asks whether a principal id exists and
// whether an email maps to one.
//
// Implementations must be safe for concurrent use.
type IdentityResolver interface {
	// ResolvePrincipal reports whether the principal id is known.
	ResolvePrincipal(ctx context.Context, id UserID) (bool, error)

	// LookupEmail resolves an email address to a principal id. found is
	// false when no account carries the address; sharing then stores the
	// email as a pending target.
	LookupEmail(ctx context.Context, email string) (UserID, bool, error)
}

// OpenIdentity is an IdentityResolver that accepts every principal and
// resolves no emails. Useful when the surrounding service has already
// authenticated the caller and the vault only needs pass-through behavior.
type OpenIdentity struct{}

func (OpenIdentity) ResolvePrincipal(_ context.Context, _ UserID) (bool, error) {
	return true, nil
}

func (OpenIdentity) LookupEmail(_ context.Context, _ string) (UserID, bool, error) {
	return "", false, nil
}

// StaticIdentity resolves principals and emails from fixed maps. Intended
// for tests and single-binary deployments.
type StaticIdentity struct {
	// Users is the set of known principal ids.
	Users map[UserID]bool

	// Emails maps addresses to principal ids.
	Emails map[string]UserID
}

func (s *StaticIdentity) ResolvePrincipal(_ context.Context, id UserID) (bool, error) {
	return s.Users[id], nil
}

func (s *StaticIdentity) LookupEmail(_ context.Context, email string) (UserID, bool, error) {
	id, ok := s.Emails[email]
	return id, ok, nil
}

// ============================================================================
// Tokens
// ============================================================================

// tokenEntropyBytes is the raw entropy behind a public-link token. 32 bytes
// makes brute-force enumeration infeasible; the token is a capability, not a
// lookup key anyone should be able to guess.
const tokenEntropyBytes = 32

// TokenSource mints public-link tokens. Abstracted so tests can produce
// predictable tokens.
type TokenSource interface {
	NewToken() (Token, error)
}

// RandomTokenSource produces tokens from crypto/rand, base64url-encoded
// without padding.
type RandomTokenSource struct{}

func (RandomTokenSource) NewToken() (Token, error) {
	b := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read token entropy: %w", err)
	}
	return Token(base64.RawURLEncoding.EncodeToString(b)), nil
}
