package turn

import (
	"io"
	"log/slog"
	"testing"

	"turnflow/policy/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildRegistry_AllConfigured(t *testing.T) {
	t.Parallel()

	registry := BuildRegistry(discardLogger(),
		NewSafetyAdapter(&scriptedSafety{}, "gr-12345", "DRAFT", retry.DefaultPolicy()),
		NewRetrievalAdapter(&scriptedRetriever{}, "kb-12345", DefaultNumResults, retry.DefaultPolicy()),
		NewPersistenceAdapter(&scriptedStore{}, "mem-12345", retry.DefaultPolicy()),
	)

	for _, kind := range Kinds() {
		if !registry.Enabled(kind) {
			t.Fatalf("Enabled(%q) = false, want true", kind)
		}
		if registry.Get(kind) == nil {
			t.Fatalf("Get(%q) = nil, want adapter", kind)
		}
	}
	if got := registry.EnabledKinds(); len(got) != 3 {
		t.Fatalf("EnabledKinds() = %v, want all three", got)
	}
}

func TestBuildRegistry_NoneConfigured(t *testing.T) {
	t.Parallel()

	registry := BuildRegistry(discardLogger(), nil, nil, nil)
	for _, kind := range Kinds() {
		if registry.Enabled(kind) {
			t.Fatalf("Enabled(%q) = true, want false", kind)
		}
		if registry.Get(kind) != nil {
			t.Fatalf("Get(%q) != nil for unconfigured capability", kind)
		}
	}
	if got := registry.EnabledKinds(); len(got) != 0 {
		t.Fatalf("EnabledKinds() = %v, want none", got)
	}
}

func TestBuildRegistry_InvalidAdapterIsDisabledNotFatal(t *testing.T) {
	t.Parallel()

	registry := BuildRegistry(discardLogger(),
		NewSafetyAdapter(&scriptedSafety{}, "gr", "DRAFT", retry.DefaultPolicy()),
		NewRetrievalAdapter(&scriptedRetriever{}, "kb-12345", 99, retry.DefaultPolicy()),
		NewPersistenceAdapter(&scriptedStore{}, "mem-12345", retry.DefaultPolicy()),
	)

	if registry.Enabled(KindSafety) {
		t.Fatal("safety with short guardrail id should be disabled")
	}
	if registry.Enabled(KindRetrieval) {
		t.Fatal("retrieval with out-of-range num_results should be disabled")
	}
	if !registry.Enabled(KindPersistence) {
		t.Fatal("valid persistence adapter should stay enabled")
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	t.Parallel()

	registry := BuildRegistry(discardLogger(), nil, nil, nil)
	if registry.Enabled(Kind("metrics")) {
		t.Fatal("unknown kind reported enabled")
	}
	if registry.Get(Kind("metrics")) != nil {
		t.Fatal("unknown kind returned adapter")
	}
}
