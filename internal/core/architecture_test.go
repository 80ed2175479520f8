package core

import (
	"testing"

	"rentcore/internal/testutil"
)

func TestOnlyCoreOpensPersistenceBackends(t *testing.T) {
	testutil.AssertImportBoundary(t, "rentcore/...", "rentcore/internal/infra/persistence", "rentcore/internal/core")
}
