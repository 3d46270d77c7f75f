// Command gogate-loadtest measures session-store throughput against Redis
// (or miniredis when no address is given) in three phases: resolving
// Authenticated sessions, selecting their profile once, and running full
// recovery challenge cycles.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix, true, 30*time.Minute)
	manager := session.NewManager(store, session.ManagerConfig{
		AbsoluteTTL: 12 * time.Hour,
		RecoveryTTL: 10 * time.Minute,
	})

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	ids := make([]string, *sessions)
	for i := range ids {
		sess, err := manager.Create(ctx, session.KindAuthenticated, session.Payload{
			UserID:            fmt.Sprintf("u-%d", i),
			Username:          fmt.Sprintf("user%d", i),
			AvailableProfiles: []string{"seller", "admin"},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
			os.Exit(1)
		}
		ids[i] = sess.SessionID
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		sess, err := manager.Resolve(ctx, ids[r.Intn(len(ids))])
		if err == nil && sess == nil {
			err = fmt.Errorf("session vanished")
		}
		return err
	})

	// Profiles are set at most once, so this phase is capped at one op per session.
	selectOps := *ops
	if selectOps > len(ids) {
		selectOps = len(ids)
	}
	selectStats := runPhase(selectOps, *concurrency, func(_ *rand.Rand, i int) error {
		return manager.SetProfile(ctx, ids[i], "seller")
	})

	questions := []session.Question{{ID: "q1", Text: "first pet"}, {ID: "q2", Text: "birth city"}}
	recoveryStats := runPhase(*ops, *concurrency, func(_ *rand.Rand, i int) error {
		sess, err := manager.Create(ctx, session.KindRecovery, session.Payload{
			UserID:   fmt.Sprintf("r-%d", i),
			Username: fmt.Sprintf("recover%d", i),
			Mode:     session.ModeForgotPassword,
		})
		if err != nil {
			return err
		}
		if err := manager.SetQuestions(ctx, sess.SessionID, questions); err != nil {
			return err
		}
		return manager.DestroyRecovery(ctx, sess.SessionID)
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("select-profile", selectStats)
	printStats("recovery-cycle", recoveryStats)
}

// runPhase executes op ops times across concurrency workers. op receives a
// per-worker rand source and the global op index.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
