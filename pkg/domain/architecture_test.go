package domain_test

import (
	"testing"

	"rentcore/internal/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"domain types and rules must not depend on implementations")
}
