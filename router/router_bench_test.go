package router

import (
	"context"
	"testing"
)

func BenchmarkTableResolve(b *testing.B) {
	table, err := NewTable(DefaultRoutes())
	if err != nil {
		b.Fatalf("NewTable failed: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		table.Resolve(PathServiceRequests)
	}
}

func BenchmarkRouterCheckParallel(b *testing.B) {
	table, err := NewTable(DefaultRoutes())
	if err != nil {
		b.Fatalf("NewTable failed: %v", err)
	}
	r := New(table, NewGuard(&fakeSession{token: true, user: true}, DefaultConfig(), nil))
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.Check(ctx, PathStudentManagement)
		}
	})
}
