package main

import (
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPhaseCountsEveryOp(t *testing.T) {
	var calls int64
	stats := runPhase(100, 8, func(_ *rand.Rand, i int) error {
		atomic.AddInt64(&calls, 1)
		if i%10 == 0 {
			return errors.New("fail")
		}
		return nil
	})
	if calls != 100 || stats.ops != 100 {
		t.Fatalf("expected 100 ops, got calls=%d stats=%d", calls, stats.ops)
	}
	if stats.failures != 10 {
		t.Fatalf("expected 10 failures, got %d", stats.failures)
	}
}

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 0, 100)
	for i := 1; i <= 100; i++ {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100 = %s", got)
	}
	if got := percentile(nil, 99); got != 0 {
		t.Fatalf("empty percentile = %s", got)
	}
}
