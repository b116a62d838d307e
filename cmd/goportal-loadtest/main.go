package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goPortal "github.com/MrEthical07/goPortal"
	"github.com/MrEthical07/goPortal/apitest"
	"github.com/MrEthical07/goPortal/router"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	loadUserEmail    = "load@example.com"
	loadUserPassword = "load-password"
)

var guardPaths = []string{
	router.PathLogin,
	router.PathServiceRequests,
	router.PathStudentManagement,
	"/about",
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "guard checks in the guard phase")
		logins      = flag.Int("logins", 2000, "login/logout cycles in the session phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gpload", "token key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *logins <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and logins must be > 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	backend := apitest.NewServer(apitest.User{
		ID:       "1",
		Email:    loadUserEmail,
		Name:     "Load",
		Role:     "staff",
		Password: loadUserPassword,
	})
	defer backend.Close()

	guardEngine, err := buildEngine(ctx, client, backend, *prefix+":guard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine failed: %v\n", err)
		os.Exit(1)
	}
	defer guardEngine.Close()
	if err := guardEngine.Login(ctx, loadUserEmail, loadUserPassword); err != nil {
		fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
		os.Exit(1)
	}

	guardStats := runGuardPhase(ctx, guardEngine.Router(), *ops, *concurrency)
	sessionStats, err := runSessionPhase(ctx, client, backend, *prefix, *logins, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session phase failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("guard", guardStats)
	printStats("session", sessionStats)
	calls := backend.Calls()
	fmt.Printf("backend calls: login=%d user=%d logout=%d\n", calls.Login, calls.User, calls.Logout)
}

func buildEngine(ctx context.Context, client redis.UniversalClient, backend *apitest.Server, prefix string) (*goPortal.Engine, error) {
	cfg := goPortal.DefaultConfig()
	cfg.API.BaseURL = backend.URL
	cfg.Storage.RedisPrefix = prefix
	cfg.Logger = slog.New(slog.DiscardHandler)

	return goPortal.New().
		WithConfig(cfg).
		WithRedis(client).
		Build(ctx)
}

func runGuardPhase(ctx context.Context, rt *router.Router, ops, concurrency int) phaseStats {
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
				path := guardPaths[r.Intn(len(guardPaths))]
				t0 := time.Now()
				_, d := rt.Check(ctx, path)
				elapsed := time.Since(t0)
				// The seeded session holds a token, so only the login page redirects.
				if d.Allowed() == (path == router.PathLogin) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runSessionPhase gives each worker its own engine and token key, so no two
// logins ever share session state.
func runSessionPhase(ctx context.Context, client redis.UniversalClient, backend *apitest.Server, prefix string, cycles, concurrency int) (phaseStats, error) {
	engines := make([]*goPortal.Engine, concurrency)
	for w := range engines {
		engine, err := buildEngine(ctx, client, backend, fmt.Sprintf("%s:w%d", prefix, w))
		if err != nil {
			return phaseStats{}, err
		}
		defer engine.Close()
		engines[w] = engine
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, cycles)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(engine *goPortal.Engine) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= cycles {
					return
				}
				t0 := time.Now()
				err := engine.Login(ctx, loadUserEmail, loadUserPassword)
				if err == nil && !engine.IsStaff() {
					err = fmt.Errorf("unexpected role after login")
				}
				if logoutErr := engine.Logout(ctx); err == nil {
					err = logoutErr
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(engines[w])
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures), nil
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
