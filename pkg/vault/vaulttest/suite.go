// Package vaulttest provides a reusable contract test suite for
// vault.MetadataStore implementations. It tests the interface contract,
// not implementation details, so the same suite runs against the memory
// and BadgerDB stores.
package vaulttest

import (
	"testing"

	"github.com/marmos91/dittovault/pkg/vault"
)

// StoreSuite exercises the full MetadataStore contract.
type StoreSuite struct {
	// NewStore creates a fresh MetadataStore for each test. This ensures
	// test isolation.
	NewStore func(t *testing.T) vault.MetadataStore
}

// Run executes all tests in the suite.
func (suite *StoreSuite) Run(test *testing.T) {
	test.Run("Content", suite.RunContentTests)
	test.Run("Trash", suite.RunTrashTests)
	test.Run("Folder", suite.RunFolderTests)
	test.Run("Grant", suite.RunGrantTests)
	test.Run("PublicLink", suite.RunPublicLinkTests)
	test.Run("Activity", suite.RunActivityTests)
	test.Run("Starred", suite.RunStarredTests)
}
