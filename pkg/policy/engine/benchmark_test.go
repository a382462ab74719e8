package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"arbiter-hq/arbiter/pkg/policy"
)

func newBenchEngine(b *testing.B, cacheTTL int) *Engine {
	b.Helper()
	eng, err := New(DefaultConfig().WithCacheTTL(cacheTTL), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		b.Fatalf("New() error: %v", err)
	}
	for i := 0; i < 20; i++ {
		p := newTestPolicy(fmt.Sprintf("p%d", i), "bench",
			rule("gate", policy.HasClaim(fmt.Sprintf("claim-%d", i)), policy.Allow(), uint32(i)),
			rule("fallback", policy.Always(), policy.Log(), 0),
		)
		if err := eng.LoadPolicy(p); err != nil {
			b.Fatalf("LoadPolicy() error: %v", err)
		}
	}
	return eng
}

func BenchmarkEvaluate_Cached(b *testing.B) {
	eng := newBenchEngine(b, 300)
	ctx := newBenchContext("user-1")
	if _, err := eng.Evaluate(context.Background(), ctx); err != nil {
		b.Fatalf("warmup Evaluate() error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Evaluate(context.Background(), ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluate_Uncached(b *testing.B) {
	eng := newBenchEngine(b, 0)
	ctx := newBenchContext("user-1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Evaluate(context.Background(), ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluate_Parallel(b *testing.B) {
	eng := newBenchEngine(b, 300)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := newBenchContext("user-parallel")
		for pb.Next() {
			if _, err := eng.Evaluate(context.Background(), ctx); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkLoadPolicy(b *testing.B) {
	eng := newBenchEngine(b, 300)
	p := newTestPolicy("reload-target", "bench",
		rule("r1", policy.Always(), policy.Allow(), 1),
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := eng.LoadPolicy(p); err != nil {
			b.Fatal(err)
		}
	}
}

func newBenchContext(subjectID string) *EvaluationContext {
	return &EvaluationContext{
		Subject:  NewSubject(subjectID, "user", []string{"claim-5", "claim-12"}, []string{"bench"}),
		Resource: Resource{ID: "resource-1", Type: "document", Domain: "bench"},
		Action:   Action{Name: "read", Type: "read"},
	}
}
