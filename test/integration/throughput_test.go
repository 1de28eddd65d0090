// ============================================================================
// questboard throughput benchmarks
// ============================================================================
//
// Package: test/integration
// File: throughput_test.go
// Purpose: Benchmarks for posting and sweeping
//
// Run with: go test ./test/integration -bench . -run ^$
//
// ============================================================================

package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/ChuLiYu/questboard/internal/config"
)

func BenchmarkPost(b *testing.B) {
	ctx := context.Background()
	bd, _, _ := newMemoryBoard(b)
	drafts := generateDrafts(64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := bd.Post(ctx, drafts[i%len(drafts)]); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSweep measures a sweep over a board where nothing changes, the
// steady state of a long-running service.
func BenchmarkSweep(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("jobs=%d", size), func(b *testing.B) {
			ctx := context.Background()
			bd, _, _ := newMemoryBoard(b)
			seedBoard(b, bd, size)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := bd.Sweep(ctx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPostSQLite(b *testing.B) {
	ctx := context.Background()
	cfg := testConfig(b.TempDir(), config.DriverSQLite)
	cfg.Journal.Enabled = false
	app := openApp(b, cfg)
	defer app.Close()
	drafts := generateDrafts(64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := app.Board.Post(ctx, drafts[i%len(drafts)]); err != nil {
			b.Fatal(err)
		}
	}
}
