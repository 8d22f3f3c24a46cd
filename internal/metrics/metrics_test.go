package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsByOperationAndCode(t *testing.T) {
	m := New()
	m.Observe("sign_direct", "0", 2*time.Millisecond)
	m.Observe("sign_direct", "0", 3*time.Millisecond)
	m.Observe("sign_direct", "3", time.Millisecond)

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("sign_direct", "0")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("sign_direct", "3")); got != 1 {
		t.Fatalf("expected 1 decode failure, got %v", got)
	}
	if got := testutil.CollectAndCount(m.OperationDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestSetMemoryStateReplacesStrategy(t *testing.T) {
	m := New()
	m.SetMemoryState(true, "mlock")
	m.SetMemoryState(false, "heap")

	if got := testutil.ToFloat64(m.MemoryLockSupport); got != 0 {
		t.Fatalf("expected lock support 0, got %v", got)
	}
	if got := testutil.CollectAndCount(m.MemoryStrategyInfo); got != 1 {
		t.Fatalf("expected a single strategy series, got %d", got)
	}
	if got := testutil.ToFloat64(m.MemoryStrategyInfo.WithLabelValues("heap")); got != 1 {
		t.Fatalf("expected heap strategy active, got %v", got)
	}
}

func TestUnlockedAllocationByBuffer(t *testing.T) {
	m := New()
	m.UnlockedAllocation("passphrase")
	m.UnlockedAllocation("passphrase")
	m.UnlockedAllocation("derived_key")
	if got := testutil.ToFloat64(m.UnlockedAllocations.WithLabelValues("passphrase")); got != 2 {
		t.Fatalf("expected 2 unlocked passphrase buffers, got %v", got)
	}
	if got := testutil.CollectAndCount(m.UnlockedAllocations); got != 2 {
		t.Fatalf("expected two series, got %d", got)
	}
}

func TestTextExposition(t *testing.T) {
	m := New()
	m.Observe("create_container", "0", 10*time.Millisecond)
	m.SetMemoryState(true, "mlock")

	text, err := m.Text()
	if err != nil {
		t.Fatalf("text failed: %v", err)
	}
	for _, want := range []string{
		`securesigner_operations_total{code="0",operation="create_container"} 1`,
		"# TYPE securesigner_operation_duration_seconds histogram",
		"securesigner_memory_lock_supported 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, text)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Observe("sign_direct", "0", time.Millisecond)
	if got := testutil.CollectAndCount(b.Operations); got != 0 {
		t.Fatalf("expected empty second registry, got %d series", got)
	}
}
