package memory

import (
	"testing"

	"rentcore/internal/testutil"
)

func TestImportsAreDomainOrExternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleImportsExcept("rentcore/pkg/domain"),
		"the memory store sees only the domain package")
}
