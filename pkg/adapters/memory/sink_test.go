package memory_test

import (
	"testing"

	"github.com/aretw0/concierge/pkg/adapters/memory"
	contract "github.com/aretw0/concierge/pkg/ports/tests"
)

func TestMemorySink_Contract(t *testing.T) {
	contract.RecordSinkContractTest(t, memory.NewSink())
}
