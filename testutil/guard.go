// Package testutil provides helpers for enforcing import boundaries across
// the repository: pkg/ stays free of internal/ so the domain types and
// hooks remain consumable without dragging in drivers or clients.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "."
// from within the package under test) and fails if any import path
// satisfies the forbidden predicate. Build tags are not followed.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// InternalImportForbidden matches any import path under this module's
// internal tree.
func InternalImportForbidden(path string) bool {
	return strings.HasPrefix(path, "crowdcore/internal/") || strings.Contains(path, "/internal/")
}

// ThirdPartyImportForbidden matches any import outside the standard library
// and this module. Domain types must stay dependency-free so drivers can
// marshal them without version coupling.
func ThirdPartyImportForbidden(path string) bool {
	if strings.HasPrefix(path, "crowdcore/") {
		return false
	}
	return strings.Contains(path, ".")
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		fileAst, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}
