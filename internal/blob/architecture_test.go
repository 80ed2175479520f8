package blob

import (
	"testing"

	"rentcore/internal/testutil"
)

func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	testutil.AssertImportBoundary(t, "rentcore/...", "rentcore/internal/infra/blob", "rentcore/internal/blob")
}
