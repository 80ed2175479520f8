package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeGo(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "a.go", "package p\n\nimport (\n\t\"fmt\"\n\t\"rentcore/internal/infra/blob/s3\"\n)\n\nvar _ = fmt.Sprint\n")
	writeGo(t, dir, "b.go", "package p\n\nimport \"rentcore/pkg/domain\"\n")
	writeGo(t, dir, "c_test.go", "package p\n\nimport \"rentcore/internal/infra/blob/fs\"\n")

	viols, err := directImportViolations(dir, PrefixForbidden("rentcore/internal/infra/blob"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rentcore/internal/infra/blob/s3 (in a.go)"}, viols, "test files are not scanned")

	viols, err = directImportViolations(dir, ModuleImportsExcept("rentcore/pkg/domain"))
	require.NoError(t, err)
	assert.Len(t, viols, 1)

	_, err = directImportViolations(filepath.Join(dir, "missing"), InternalImportForbidden)
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	infra := PrefixForbidden("rentcore/internal/infra/")
	assert.True(t, infra("rentcore/internal/infra"))
	assert.True(t, infra("rentcore/internal/infra/persistence/memory"))
	assert.False(t, infra("rentcore/internal/infrastructure"))

	assert.True(t, InternalImportForbidden("rentcore/internal/core"))
	assert.False(t, InternalImportForbidden("rentcore/pkg/domain"))

	only := ModuleImportsExcept("rentcore/pkg/domain")
	assert.False(t, only("github.com/google/uuid"))
	assert.False(t, only("rentcore/pkg/domain"))
	assert.True(t, only("rentcore/internal/core"))
}

func TestFailIfViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfViolations(rec, "reason", nil)
	assert.Empty(t, rec.msg)

	failIfViolations(rec, "domain stays pure", []string{"x (in y.go)"})
	assert.Contains(t, rec.msg, "domain stays pure")
	assert.Contains(t, rec.msg, "x (in y.go)")
}

func TestBoundaryViolations(t *testing.T) {
	pkgs := []*packages.Package{
		{PkgPath: "rentcore/internal/blob", Imports: map[string]*packages.Package{"rentcore/internal/infra/blob/s3": nil}},
		{PkgPath: "rentcore/internal/infra/blob/s3", Imports: map[string]*packages.Package{"rentcore/internal/infra/blob/core": nil}},
		{PkgPath: "rentcore/internal/core_test", Imports: map[string]*packages.Package{"rentcore/internal/infra/blob/fs": nil}},
		{PkgPath: "rentcore/cmd/rentctl", Imports: map[string]*packages.Package{"rentcore/internal/blob": nil}},
	}
	viols := boundaryViolations(pkgs, "rentcore/internal/infra/blob", []string{"rentcore/internal/blob"})
	assert.Equal(t, []string{"rentcore/internal/core: rentcore/internal/infra/blob/fs"}, viols)
}
