package exectx

import "testing"

type countingFactory struct {
	inner Factory
	count *int
}

func (f countingFactory) Start(name, id string, parent *ExecutionContext, relation Relation, startNanos, deadlineNanos int64) *ExecutionContext {
	*f.count++
	return f.inner.Start(name, id, parent, relation, startNanos, deadlineNanos)
}

func TestRegisterFactoryAndWrapper(t *testing.T) {
	var calls int
	RegisterFactory("counting-test", func() Factory { return defaultFactory{} })
	RegisterFactoryWrapper("count-wrapper-test", func(inner Factory) Factory {
		return countingFactory{inner: inner, count: &calls}
	})

	f, err := resolveFactory("counting-test", "count-wrapper-test")
	if err != nil {
		t.Fatalf("resolveFactory error: %v", err)
	}
	ctx := f.Start("c", "", nil, ChildOf, nowNanos(), nowNanos()+1)
	if ctx == nil {
		t.Fatal("Start returned nil context")
	}
	if calls != 1 {
		t.Fatalf("wrapper call count = %d, want 1", calls)
	}
}

func TestResolveFactoryUnknownName(t *testing.T) {
	if _, err := resolveFactory("nope", ""); err == nil {
		t.Fatal("resolveFactory with unknown name succeeded, want ConfigError")
	}
}

func TestResolveFactoryUnknownWrapper(t *testing.T) {
	if _, err := resolveFactory("default", "nope"); err == nil {
		t.Fatal("resolveFactory with unknown wrapper succeeded, want ConfigError")
	}
}
