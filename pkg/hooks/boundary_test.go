package hooks_test

import (
	"testing"

	"crowdcore/testutil"
)

// Hooks are the extension surface experiments implement. Keeping them off
// internal/ means an experiment module only needs pkg/domain and pkg/hooks.
func TestHooksImportsStayClean(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"pkg/hooks must not depend on internal packages")
}
