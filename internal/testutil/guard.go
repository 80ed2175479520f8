// Package testutil holds test helpers that enforce package boundaries.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// ModulePath is the import path prefix of this module's own packages.
const ModulePath = "rentcore/"

// AssertNoDirectImports parses the non-test .go files in dir and fails if any
// import satisfies forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfViolations(t, reason, viols)
}

// AssertImportBoundary loads every package matching pattern, tests
// included, and fails if a package outside restricted and allowed imports
// restricted or anything below it.
func AssertImportBoundary(t testing.TB, pattern, restricted string, allowed ...string) {
	t.Helper()
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	failIfViolations(t, restricted+" is reachable only through "+strings.Join(allowed, ", "),
		boundaryViolations(pkgs, restricted, allowed))
}

func boundaryViolations(pkgs []*packages.Package, restricted string, allowed []string) []string {
	inside := PrefixForbidden(restricted)
	permitted := func(path string) bool {
		if inside(path) {
			return true
		}
		for _, a := range allowed {
			if PrefixForbidden(a)(path) {
				return true
			}
		}
		return false
	}
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		// external test packages answer for the package they test
		owner := strings.TrimSuffix(pkg.PkgPath, "_test")
		if permitted(owner) {
			continue
		}
		for imp := range pkg.Imports {
			if inside(imp) {
				seen[owner+": "+imp] = struct{}{}
			}
		}
	}
	viols := make([]string, 0, len(seen))
	for v := range seen {
		viols = append(viols, v)
	}
	sort.Strings(viols)
	return viols
}

// InternalImportForbidden matches any path under an internal/ tree.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// PrefixForbidden matches paths equal to or nested below prefix.
func PrefixForbidden(prefix string) func(string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return func(path string) bool {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
}

// ModuleImportsExcept matches module-local paths that are not in allowed.
// Standard library and third-party imports never match.
func ModuleImportsExcept(allowed ...string) func(string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(path string) bool {
		if !strings.HasPrefix(path, ModulePath) {
			return false
		}
		_, ok := set[path]
		return !ok
	}
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
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			ip := strings.Trim(imp.Path.Value, `"`)
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
