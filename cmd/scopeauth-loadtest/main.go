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

	"github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/directory/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const loadPassword = "load-test-password"

func main() {
	var (
		users       = flag.Int("users", 10000, "number of principals to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		logins      = flag.Int("logins", 2000, "Authenticate calls in the login phase")
		ops         = flag.Int("ops", 200000, "Authorize calls in the authorize phase")
		memoryKB    = flag.Uint("argon2-memory", 16*1024, "argon2id memory in KB")
		rateLimit   = flag.Bool("rate-limit", false, "enable the redis login limiter")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *logins <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, logins, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg := scopeAuth.DefaultConfig()
	cfg.JWT.Secret = []byte("load-test-secret-load-test-secret!")
	cfg.Password.Memory = uint32(*memoryKB)
	cfg.Password.Time = 1
	cfg.RateLimit.MaxLoginAttempts = 1 << 20
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	dir := memory.New()
	builder := scopeAuth.New().WithConfig(cfg).WithUserDirectory(dir)

	if *rateLimit {
		client, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	hash, err := engine.HashPassword(loadPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d principals...\n", *users)
	startSeed := time.Now()
	names := make([]string, *users)
	for i := range names {
		names[i] = fmt.Sprintf("user-%d", i)
		if _, err := dir.Add(scopeAuth.StoredPrincipal{
			Username:     names[i],
			PasswordHash: hash,
			Scopes:       []string{"me", "items"},
		}); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	var (
		tokensMu sync.Mutex
		tokens   = make([]string, 0, *logins)
	)
	loginStats := runPhase(*logins, *concurrency, func(r *rand.Rand) error {
		grant, err := engine.Authenticate(ctx, scopeAuth.Credentials{
			Username: names[r.Intn(len(names))],
			Password: loadPassword,
			Scopes:   []string{"me", "items"},
		})
		if err != nil {
			return err
		}
		tokensMu.Lock()
		tokens = append(tokens, grant.AccessToken)
		tokensMu.Unlock()
		return nil
	})
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no tokens issued; aborting")
		os.Exit(1)
	}

	authorizeStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, tokens[r.Intn(len(tokens))], "items")
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", loginStats)
	printStats("authorize", authorizeStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d login_failure=%d authorize_success=%d directory_unavailable=%d\n",
		snap.Counters[scopeAuth.MetricLoginSuccess],
		snap.Counters[scopeAuth.MetricLoginFailure],
		snap.Counters[scopeAuth.MetricAuthorizeSuccess],
		snap.Counters[scopeAuth.MetricDirectoryUnavailable],
	)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		eg        errgroup.Group
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		worker := w
		eg.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for int(atomic.AddInt64(&cursor, 1)) <= ops {
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
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
